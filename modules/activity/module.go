package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/bugtracker-chat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// ServiceSummary is the request-reply service returning the activity summary.
const ServiceSummary = "summary"

// SummaryRequest is the (empty) request for the summary service.
type SummaryRequest struct{}

// Module consumes chat events and tracks activity counters.
type Module struct {
	store  *ActivityStore
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewActivityStore(),
		logger: logger.WithModule("activity"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	summary := m.store.GetSummary()
	m.logger.Info("Activity module stopped", "messages", summary.MessagesSent, "users", summary.UsersJoined)
	return nil
}

// Store returns the activity store.
func (m *Module) Store() *ActivityStore {
	return m.store
}

// RegisterEventConsumers registers handlers for chat events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomJoinedV1, m.handleRoomJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"UserJoined.v1", "RoomJoined.v1", "MessageSent.v1", "UserLeft.v1"})
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.store.RecordUserJoined(event.ConnectionID)
	m.logger.Debug("Recorded user join", "username", event.Username)
	return nil
}

func (m *Module) handleRoomJoined(_ context.Context, event events.RoomJoinedEvent, _ *mono.Msg) error {
	m.store.RecordRoomJoined(event.Room, event.Timestamp)
	m.logger.Debug("Recorded room join", "username", event.Username, "room", event.Room)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordMessage(event.Room, event.Length, event.Timestamp)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.store.RecordUserLeft(event.ConnectionID)
	m.logger.Debug("Recorded user leave", "username", event.Username, "rooms", len(event.Rooms))
	return nil
}

// RegisterServices registers the summary service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSummary, json.Unmarshal, json.Marshal, m.handleSummary,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSummary, err)
	}
	m.logger.Info("Registered activity services", "services", []string{ServiceSummary})
	return nil
}

func (m *Module) handleSummary(_ context.Context, _ SummaryRequest, _ *mono.Msg) (Summary, error) {
	return m.store.GetSummary(), nil
}
