package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	domain "github.com/example/bugtracker-chat/domain/chat"
)

// Config is read once from the environment at startup.
type Config struct {
	Port              string
	DBPath            string
	DBDebug           bool
	ClientURL         string
	RedisAddr         string
	CacheTTL          time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	MaxFrameBytes     int
	ChatHistorySize   int
	ShutdownTimeout   time.Duration
}

func loadConfig() Config {
	return Config{
		Port:              getEnv("PORT", "5000"),
		DBPath:            getEnv("DATABASE_URL", getEnv("DB_PATH", "bugs.db")),
		DBDebug:           getEnvBool("DB_DEBUG", false),
		ClientURL:         getEnv("CLIENT_URL", "http://localhost:3000"),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		MaxFrameBytes:     getEnvInt("CHAT_MAX_FRAME_BYTES", 64*1024),
		ChatHistorySize:   getEnvInt("CHAT_HISTORY_SIZE", domain.MaxRoomHistory),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
