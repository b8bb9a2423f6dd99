package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule owns the WebSocket fan-out hub.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(logger types.Logger) *BroadcastModule {
	moduleLogger := logger.WithModule("broadcast")
	return &BroadcastModule{
		hub:    NewHub(moduleLogger),
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the hub and closes every client queue.
func (m *BroadcastModule) Stop(ctx context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		select {
		case <-m.hub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.logger.Info("Module stopped", "clients", clientCount, "dropped_frames", m.hub.Dropped())
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"dropped_frames":    m.hub.Dropped(),
		},
	}
}

// Hub returns the WebSocket hub for the chat and API modules.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}
