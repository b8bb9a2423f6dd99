package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per admitted request, scored by its
// arrival in ms. Returns {allowed, remaining, oldest_expiry_ms}.
var slidingWindow = redis.NewScript(`
local bucket, seq = KEYS[1], KEYS[1] .. ':seq'
local now, floor = tonumber(ARGV[1]), tonumber(ARGV[2])
local max, ttl = tonumber(ARGV[3]), tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', bucket, '-inf', floor)
local used = redis.call('ZCARD', bucket)
if used >= max then
	local head = redis.call('ZRANGE', bucket, 0, 0, 'WITHSCORES')
	if #head < 2 then
		return {0, 0, 0}
	end
	return {0, 0, tonumber(head[2]) + ttl}
end

local n = redis.call('INCR', seq)
redis.call('ZADD', bucket, now, now .. '-' .. n)
redis.call('PEXPIRE', bucket, ttl)
redis.call('PEXPIRE', seq, ttl)
return {1, max - used - 1, 0}
`)

// Checker decides whether a request identified by key may proceed.
type Checker interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter counts requests per key over a sliding window stored in Redis.
type Limiter struct {
	client    *redis.Client
	keyPrefix string
}

var _ Checker = (*Limiter)(nil)

func NewLimiter(client *redis.Client, keyPrefix string) *Limiter {
	return &Limiter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Allow records a request for key and reports whether it fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	reply, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), now.Add(-window).UnixMilli(), limit, window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %q: %w", key, err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("rate limit check for %q: got %d values, want 3", key, len(reply))
	}

	res := &Result{
		Allowed:   reply[0] == 1,
		Remaining: int(reply[1]),
		ResetAt:   now.Add(window),
		Limit:     limit,
	}
	if reply[2] > 0 {
		res.ResetAt = time.UnixMilli(reply[2])
	}
	return res, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	bucket := l.keyPrefix + key
	return l.client.Del(ctx, bucket, bucket+":seq").Err()
}
