package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module runs the chat hub inside the mono application.
type Module struct {
	hub       *Hub
	eventBus  mono.EventBus
	logger    types.Logger
	cancelHub context.CancelFunc
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Notifier                   = (*Module)(nil)
)

// NewModule creates a chat module emitting through transport.
func NewModule(transport Transport, logger types.Logger, opts ...Option) *Module {
	m := &Module{logger: logger.WithModule("chat")}
	opts = append([]Option{WithNotifier(m)}, opts...)
	m.hub = NewHub(transport, m.logger, opts...)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Hub returns the event coordinator used by the WebSocket endpoint.
func (m *Module) Hub() *Hub {
	return m.hub
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.RoomJoinedV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.UserLeftV1.ToBase(),
	}
}

// RegisterServices registers the read-side request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceHistory, json.Unmarshal, json.Marshal, m.handleHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceHistory, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRooms, json.Unmarshal, json.Marshal, m.handleRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceStats, json.Unmarshal, json.Marshal, m.handleStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}

	m.logger.Info("Registered chat services", "services", []string{ServiceHistory, ServiceRooms, ServiceStats})
	return nil
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Chat module started")
	return nil
}

// Stop stops the hub loop and waits for it to exit.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancelHub == nil {
		return nil
	}
	m.cancelHub()
	select {
	case <-m.hub.Done():
	case <-ctx.Done():
		return fmt.Errorf("chat hub did not stop: %w", ctx.Err())
	}
	m.logger.Info("Chat module stopped")
	return nil
}

// Health reports hub counters.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats, err := m.hub.Stats(ctx)
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("hub unavailable: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": stats.Connections,
			"named_users": stats.NamedUsers,
			"rooms":       stats.Rooms,
		},
	}
}

// Service handlers

func (m *Module) handleHistory(ctx context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	room := strings.TrimSpace(req.Room)
	if room == "" {
		return HistoryResponse{}, ErrRoomNameEmpty
	}

	messages, err := m.hub.Recent(ctx, room)
	if err != nil {
		return HistoryResponse{}, err
	}
	if req.Limit > 0 && len(messages) > req.Limit {
		messages = messages[len(messages)-req.Limit:]
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return HistoryResponse{Room: room, Messages: messages}, nil
}

func (m *Module) handleRooms(ctx context.Context, _ RoomsRequest, _ *mono.Msg) (RoomsResponse, error) {
	rooms, err := m.hub.Rooms(ctx)
	if err != nil {
		return RoomsResponse{}, err
	}
	return RoomsResponse{Rooms: rooms}, nil
}

func (m *Module) handleStats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (Stats, error) {
	return m.hub.Stats(ctx)
}

// Notifier implementation: publish domain events on the EventBus.

// UserJoined publishes a UserJoined event.
func (m *Module) UserJoined(event events.UserJoinedEvent) {
	m.publish("UserJoined", func() error { return events.UserJoinedV1.Publish(m.eventBus, event, nil) })
}

// RoomJoined publishes a RoomJoined event.
func (m *Module) RoomJoined(event events.RoomJoinedEvent) {
	m.publish("RoomJoined", func() error { return events.RoomJoinedV1.Publish(m.eventBus, event, nil) })
}

// MessageSent publishes a MessageSent event.
func (m *Module) MessageSent(event events.MessageSentEvent) {
	m.publish("MessageSent", func() error { return events.MessageSentV1.Publish(m.eventBus, event, nil) })
}

// UserLeft publishes a UserLeft event.
func (m *Module) UserLeft(event events.UserLeftEvent) {
	m.publish("UserLeft", func() error { return events.UserLeftV1.Publish(m.eventBus, event, nil) })
}

func (m *Module) publish(name string, fn func() error) {
	if m.eventBus == nil {
		return
	}
	if err := fn(); err != nil {
		m.logger.Warn("Failed to publish chat event", "event", name, "error", err)
	}
}
