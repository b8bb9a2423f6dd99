package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/bugtracker-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort is the read-side API other modules use to query chat state.
type ChatPort interface {
	History(ctx context.Context, room string, limit int) ([]domain.Message, error)
	Rooms(ctx context.Context) ([]domain.RoomSummary, error)
	Stats(ctx context.Context) (Stats, error)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

// History returns the most recent messages of room.
func (a *ChatAdapter) History(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	req := HistoryRequest{Room: room, Limit: limit}
	var resp HistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return resp.Messages, nil
}

// Rooms lists the rooms that have a history log.
func (a *ChatAdapter) Rooms(ctx context.Context) ([]domain.RoomSummary, error) {
	req := RoomsRequest{}
	var resp RoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// Stats returns hub counters.
func (a *ChatAdapter) Stats(ctx context.Context) (Stats, error) {
	req := StatsRequest{}
	var resp Stats
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return Stats{}, fmt.Errorf("failed to get chat stats: %w", err)
	}
	return resp, nil
}
