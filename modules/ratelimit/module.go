package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis client backing the HTTP rate limiter.
type Module struct {
	config  Config
	client  *redis.Client
	limiter atomic.Pointer[Limiter]
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Checker                    = (*Module)(nil)
)

// NewModule creates a rate limit module.
func NewModule(logger types.Logger, opts ...Option) *Module {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Module{
		config: config,
		logger: logger.WithModule("ratelimit"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:         m.config.RedisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", m.config.RedisAddr, err)
	}

	m.limiter.Store(NewLimiter(m.client, m.config.KeyPrefix))
	m.logger.Info("Rate limiter started",
		"redis", m.config.RedisAddr,
		"limit", m.config.Limit,
		"window", m.config.Window.String())
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Failed to close Redis connection", "error", err)
			return err
		}
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"limit":  m.config.Limit,
			"window": m.config.Window.String(),
		},
	}
}

// ErrNotStarted is returned by Allow before Start has connected to Redis.
var ErrNotStarted = errors.New("rate limiter not started")

// Allow delegates to the Redis limiter once the module has started.
func (m *Module) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	limiter := m.limiter.Load()
	if limiter == nil {
		return nil, ErrNotStarted
	}
	return limiter.Allow(ctx, key, limit, window)
}

// Handler returns per-IP Fiber middleware using the configured budget.
func (m *Module) Handler() fiber.Handler {
	return NewHandler(m, m.config.Limit, m.config.Window, ByIP, m.logger)
}
