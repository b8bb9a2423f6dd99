package broadcast

import (
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// WebSocket timing.
const (
	// WriteWait is the time allowed to write one frame.
	WriteWait = 10 * time.Second
	// PongWait is the time allowed to read the next pong from the peer.
	PongWait = 60 * time.Second
	// PingPeriod must be less than PongWait.
	PingPeriod = (PongWait * 9) / 10

	defaultSendBuffer = 256
)

// Conn is the subset of *websocket.Conn the write pump needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one connected WebSocket peer with its outbound queue.
type Client struct {
	ID     string
	conn   Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger types.Logger
}

// NewClient creates a client for conn.
func NewClient(id string, conn Conn, logger types.Logger) *Client {
	return newClient(id, conn, logger, defaultSendBuffer)
}

func newClient(id string, conn Conn, logger types.Logger, buffer int) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Done is closed when the write pump has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue hands a frame to the write pump without blocking.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// WritePump drains the send queue to the connection and keeps it alive with pings.
// It returns when the queue is closed or a write fails.
func (c *Client) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("Write failed, closing connection", "conn_id", c.ID, "error", err)
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Ping failed, closing connection", "conn_id", c.ID, "error", err)
				_ = c.conn.Close()
				return
			}
		}
	}
}
