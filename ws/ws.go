// Package ws provides the live feed of arena events for websocket clients.
package ws

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"net/http"
	"strconv"
)

// sendBuffer is the amount of messages that may queue up for a client before
// it is considered too slow.
const sendBuffer = 256

// arenaQueryParam is the query parameter for following single arenas. It may
// be repeated.
const arenaQueryParam = "arena"

// parseArenaFilter parses the arenas to follow from the query parameters.
func parseArenaFilter(r *http.Request) (map[int]struct{}, error) {
	arenas := make(map[int]struct{})
	for _, raw := range r.URL.Query()[arenaQueryParam] {
		number, err := strconv.Atoi(raw)
		if err != nil || number < 1 {
			return nil, errors.NewBadRequestError(errors.KindInvalidArgument,
				fmt.Sprintf("invalid arena %q", raw), errors.Details{"arena": raw})
		}
		arenas[number] = struct{}{}
	}
	return arenas, nil
}

// HandleWS upgrades spectator connections and registers them at the hub. The
// passed context is used in order to stop all remaining read-pumps.
func HandleWS(ctx context.Context, hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  maxMessageSize,
		WriteBufferSize: 4096,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		arenas, err := parseArenaFilter(r)
		if err != nil {
			errors.Log(hub.logger, err)
			http.Error(w, errors.UserMessage(err), http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errors.Log(hub.logger, errors.Error{
				Code:    errors.ErrBadRequest,
				Err:     err,
				Message: "upgrade connection",
				Details: errors.Details{"remote_addr": r.RemoteAddr},
			})
			return
		}
		client := &Client{
			ID:     uuid.New(),
			Send:   make(chan []byte, sendBuffer),
			arenas: arenas,
			hub:    hub,
			conn:   conn,
		}
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case hub.register <- client:
		}
		go client.writePump()
		go client.readPump(ctx)
	}
}

// envelopeArena returns the arena number of arena-scoped events and 0 for
// level-wide ones.
func envelopeArena(e event.Envelope) int {
	switch payload := e.Payload.(type) {
	case event.ArenaStateEvent:
		return payload.Arena
	case event.RoundEndedEvent:
		return payload.Arena
	case event.MatchEndedEvent:
		return payload.Arena
	case event.VoteResolvedEvent:
		if payload.Arena.Valid {
			return payload.Arena.Int
		}
	}
	return 0
}
