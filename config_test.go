package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "DB_PATH", "DB_DEBUG", "CLIENT_URL", "REDIS_ADDR", "CACHE_TTL",
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "CHAT_MAX_FRAME_BYTES", "CHAT_HISTORY_SIZE", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "bugs.db", cfg.DBPath)
	assert.False(t, cfg.DBDebug)
	assert.Equal(t, "http://localhost:3000", cfg.ClientURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 65536, cfg.MaxFrameBytes)
	assert.Equal(t, 100, cfg.ChatHistorySize)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("DB_DEBUG", "true")
	t.Setenv("REDIS_ADDR", " localhost:6380 ")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg := loadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.True(t, cfg.DBDebug)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestLoadConfig_DatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:chat.db")
	t.Setenv("DB_PATH", "/tmp/x.db")

	assert.Equal(t, "file:chat.db", loadConfig().DBPath)
}
