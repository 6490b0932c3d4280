// ABOUTME: Per-connection client with gorilla/websocket read and write pumps
// ABOUTME: Holds the verified identity and the outbound event queue

package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/atendeai/chat-gateway/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period; must be less than pongWait
	pingPeriod = 54 * time.Second

	// Maximum inbound message size in bytes
	maxMessageSize = 64 * 1024

	// sendQueueSize is the outbound event buffer per connection.
	// A connection that falls this far behind starts missing events.
	sendQueueSize = 64
)

// Client is one authenticated, persistent chat connection bound to a
// verified user identity.
type Client struct {
	id        string
	conn      *websocket.Conn
	identity  *auth.Identity
	hub       *Hub
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, identity *auth.Identity) *Client {
	id := uuid.New().String()
	return &Client{
		id:       id,
		conn:     conn,
		identity: identity,
		hub:      hub,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		logger: hub.logger.With(
			"connection_id", id,
			"user_id", identity.UserID,
		),
	}
}

// UserID implements presence.Conn.
func (c *Client) UserID() int64 {
	return c.identity.UserID
}

// Identity returns the verified identity attached at handshake time.
func (c *Client) Identity() *auth.Identity {
	return c.identity
}

// Send queues an event for delivery to this connection. Events are dropped
// rather than blocking when the connection cannot keep up.
func (c *Client) Send(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		c.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	if !c.enqueue(payload) {
		c.logger.Debug("dropped event for slow connection", "event", event)
	}
}

// SendError emits a scoped error event; the connection stays open.
func (c *Client) SendError(message string) {
	c.Send(EventError, &ErrorPayload{Message: message})
}

// enqueue offers a pre-encoded payload to the send queue without blocking.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown marks the client closed and closes the transport. Safe to call
// more than once; the pumps and the hub teardown path both reach it.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// readPump reads events off the socket and dispatches them one at a time,
// preserving arrival order for this connection. It exits on any read error
// and triggers the hub's disconnect handling.
func (c *Client) readPump() {
	defer c.hub.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Debug("failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Debug("unexpected close", "error", err)
			}
			return
		}

		c.hub.dispatch(c, raw)
	}
}

// writePump moves queued events onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
