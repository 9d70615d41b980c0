package ws

import (
	"context"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/arena-server/errors"
	"go.uber.org/zap"
	"time"
)

const (
	// writeTimeout is the timeout for writing a message to the spectator.
	writeTimeout = 10 * time.Second
	// pongTimeout is the timeout for waiting for the next pong.
	pongTimeout = time.Minute
	// pingInterval must be less than pongTimeout.
	pingInterval = pongTimeout * 9 / 10
	// maxMessageSize limits messages from spectators. The feed is read-only, so
	// only control messages are expected.
	maxMessageSize = 512
)

// Client is a spectator connected to the live feed.
type Client struct {
	// ID identifies the client in logs.
	ID uuid.UUID
	// Send receives messages to write to the connection. It is closed by the hub.
	Send chan []byte
	// arenas is the set of arena numbers the client follows. If empty, all arenas
	// are followed.
	arenas map[int]struct{}
	hub    *Hub
	conn   *websocket.Conn
}

// follows describes whether the client wants events of the given arena.
// Level-wide events have arena number 0 and are always wanted.
func (c *Client) follows(arena int) bool {
	if arena == 0 || len(c.arenas) == 0 {
		return true
	}
	_, ok := c.arenas[arena]
	return ok
}

func (c *Client) logger() *zap.Logger {
	return c.hub.logger.With(zap.String("client_id", c.ID.String()))
}

func (c *Client) close() {
	err := c.conn.Close()
	if err != nil {
		c.logger().Debug("close connection", zap.Error(err))
	}
}

// readPump keeps the read deadline alive until the connection fails and then
// unregisters the client. Anything the spectator sends is discarded.
func (c *Client) readPump(ctx context.Context) {
	defer c.close()
	defer func() {
		select {
		case <-ctx.Done():
		case c.hub.unregister <- c:
		}
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			errors.Log(c.logger(), errors.Error{
				Code:    errors.ErrCommunication,
				Err:     err,
				Message: "spectator connection closed unexpectedly",
			})
		}
		return
	}
}

// write writes a single message with the write deadline set.
func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// writePump writes messages from Send until the hub closes it. Pings keep the
// connection alive in between.
func (c *Client) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	defer c.close()
	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				if err := c.write(websocket.CloseMessage, []byte{}); err != nil {
					c.logger().Debug("write close message", zap.Error(err))
				}
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger().Debug("write message", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger().Debug("write ping", zap.Error(err))
				return
			}
		}
	}
}
