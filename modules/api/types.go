package api

import (
	domain "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/modules/activity"
	"github.com/example/bugtracker-chat/modules/chat"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every REST error.
type ErrorResponse struct {
	Message string `json:"message"`
}

// RoomListResponse is the body of GET /api/v1/rooms.
type RoomListResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// HistoryResponse is the body of GET /api/v1/rooms/:room/history.
type HistoryResponse struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

// ChatStatsResponse is the body of GET /api/v1/chat/stats.
type ChatStatsResponse struct {
	ConnectedClients int              `json:"connected_clients"`
	Hub              chat.Stats       `json:"hub"`
	Activity         activity.Summary `json:"activity"`
}
