package ratelimit

import "time"

// Config holds rate limiter configuration.
type Config struct {
	// RedisAddr is the Redis server address, e.g. "localhost:6379".
	RedisAddr string

	// Limit is the number of requests allowed per client in Window.
	Limit int

	// Window is the sliding window length.
	Window time.Duration

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr: "localhost:6379",
		Limit:     100,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:",
	}
}

// Option modifies a Config.
type Option func(*Config)

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(c *Config) {
		c.RedisAddr = addr
	}
}

// WithLimit sets the request budget per window. Non-positive values are ignored.
func WithLimit(limit int, window time.Duration) Option {
	return func(c *Config) {
		if limit > 0 {
			c.Limit = limit
		}
		if window > 0 {
			c.Window = window
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}
