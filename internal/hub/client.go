package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/dto"
	"snsu-notification/internal/metrics"
)

// Client is one authenticated websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	id    string
	user  domain.User
	rooms []domain.Room
	send  chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient binds an authenticated user to conn. The rooms are fixed here.
func NewClient(hub *Hub, conn *websocket.Conn, user *domain.User) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		id:    uuid.NewString(),
		user:  *user,
		rooms: domain.RoomsFor(user.ID, user.Role),
		send:  make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"user_id": c.user.ID, "conn_id": c.id})
}

// ReadPump handles inbound events one at a time, in arrival order.
func (c *Client) ReadPump() {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.hub.Unregister(ctx, c); err != nil {
			c.logger().WithError(err).Warn("Failed to unregister client from Hub")
		}
		cancel()
		c.conn.Close()
		c.logger().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logger().Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger().Debugf("Received non-text message type: %d", messageType)
			continue
		}
		c.hub.handleEvent(c, message)
	}
}

// WritePump drains the send channel onto the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger().Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger().WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// trySend queues frame without blocking. Frames for a full queue or a
// closed client are dropped.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		metrics.FramesDropped.Inc()
		c.logger().Warn("Client send channel full, frame dropped")
		return false
	}
}

// sendError emits a connection-local error event.
func (c *Client) sendError(message string) {
	frame, err := dto.NewEnvelope(dto.EventError, dto.ErrorPayload{Message: message})
	if err != nil {
		c.logger().WithError(err).Error("Failed to marshal error event")
		return
	}
	c.trySend(frame)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) ID() string { return c.id }
func (c *Client) UserID() uint { return c.user.ID }
func (c *Client) Role() domain.Role { return c.user.Role }
func (c *Client) Rooms() []domain.Room { return c.rooms }
func (c *Client) CloseConn() { c.conn.Close() }
