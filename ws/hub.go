package ws

import (
	"context"
	"encoding/json"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"go.uber.org/zap"
)

// broadcastBuffer is the amount of messages that may queue up in the hub.
const broadcastBuffer = 256

// WelcomeFunc returns the envelope to send to newly connected clients. The
// second return value is false if there is nothing to send.
type WelcomeFunc func() (event.Envelope, bool)

// Hub holds all active clients and forwards broadcasts to them.
type Hub struct {
	logger  *zap.Logger
	welcome WelcomeFunc
	// clients holds all online clients.
	clients map[*Client]struct{}
	// register receives when a Client wants to register itself.
	register chan *Client
	// unregister receives when a Client wants to unregister itself.
	unregister chan *Client
	// broadcast receives marshalled messages for all following clients.
	broadcast chan broadcastMessage
}

// broadcastMessage is a marshalled envelope with the arena it belongs to.
type broadcastMessage struct {
	arena int
	raw   []byte
}

// NewHub creates a new Hub. Start it with Hub.Run. The WelcomeFunc is optional.
func NewHub(logger *zap.Logger, welcome WelcomeFunc) *Hub {
	return &Hub{
		logger:     logger,
		welcome:    welcome,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, broadcastBuffer),
		clients:    make(map[*Client]struct{}),
	}
}

func marshalEnvelope(e event.Envelope) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal envelope",
			Details: errors.Details{"type": e.Type},
		}
	}
	return raw, nil
}

// Broadcast sends the envelope to all clients following its arena. It does not
// block. If the hub is congested, the envelope is dropped.
func (h *Hub) Broadcast(e event.Envelope) {
	raw, err := marshalEnvelope(e)
	if err != nil {
		errors.Log(h.logger, err)
		return
	}
	select {
	case h.broadcast <- broadcastMessage{arena: envelopeArena(e), raw: raw}:
	default:
		h.logger.Warn("dropping broadcast due to congested hub", zap.String("type", string(e.Type)))
	}
}

// Run starts the Hub. It blocks so you need to start a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Info("client connected", zap.Any("client_id", c.ID))
			h.sendWelcome(c)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Info("client disconnected", zap.Any("client_id", c.ID))
			}
		case message := <-h.broadcast:
			for c := range h.clients {
				if !c.follows(message.arena) {
					continue
				}
				select {
				case c.Send <- message.raw:
				default:
					h.drop(c)
					h.logger.Warn("dropped slow client", zap.Any("client_id", c.ID))
				}
			}
		}
	}
}

func (h *Hub) sendWelcome(c *Client) {
	if h.welcome == nil {
		return
	}
	e, ok := h.welcome()
	if !ok {
		return
	}
	raw, err := marshalEnvelope(e)
	if err != nil {
		errors.Log(h.logger, err)
		return
	}
	select {
	case c.Send <- raw:
	default:
	}
}

// drop removes the client. Closing the send-channel stops the write-pump.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.Send)
}
