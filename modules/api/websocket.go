package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/bugtracker-chat/modules/broadcast"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// wsConn is the subset of *websocket.Conn the read loop needs.
type wsConn interface {
	broadcast.Conn
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

const invalidFrameMessage = "Invalid message format"

// upgradeGuard answers plain HTTP requests on /chat with 426.
func (m *APIModule) upgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (m *APIModule) websocketHandler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		m.serveConn(c, m.newID())
	})
}

// serveConn runs one connection until the peer goes away. Client frames are
// decoded and dispatched to the chat hub in arrival order.
func (m *APIModule) serveConn(conn wsConn, connID string) {
	ctx := context.Background()
	client := broadcast.NewClient(connID, conn, m.logger)
	m.hub.Register(client)
	go client.WritePump(broadcast.PingPeriod)

	defer func() {
		if err := m.dispatcher.Disconnect(ctx, connID); err != nil {
			m.logger.Debug("Disconnect not delivered", "conn_id", connID, "error", err)
		}
		m.hub.Unregister(connID)
		<-client.Done()
		_ = conn.Close()
		m.logger.Info("Client disconnected", "conn_id", connID)
	}()

	if err := m.dispatcher.Connect(ctx, connID); err != nil {
		m.logger.Warn("Chat hub unavailable", "conn_id", connID, "error", err)
		return
	}
	m.logger.Info("Client connected", "conn_id", connID)

	conn.SetReadLimit(int64(m.config.MaxFrameBytes))
	_ = conn.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(broadcast.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("Unexpected close", "conn_id", connID, "error", err)
			}
			return
		}

		var frame chat.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			m.hub.EmitTo(connID, chat.ServerError, chat.ErrorPayload{Message: invalidFrameMessage})
			continue
		}

		kind := chat.EventKind(frame.Event)
		if kind == chat.EventConnect || kind == chat.EventDisconnect {
			m.hub.EmitTo(connID, chat.ServerError, chat.ErrorPayload{Message: "Unknown event: " + frame.Event})
			continue
		}

		if err := m.dispatcher.Dispatch(ctx, chat.Event{Kind: kind, ConnID: connID, Data: frame.Data}); err != nil {
			m.logger.Warn("Chat hub unavailable", "conn_id", connID, "error", err)
			return
		}
	}
}
