package ratelimit

import (
	"strconv"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// KeyFunc derives the client key for a request.
type KeyFunc func(c *fiber.Ctx) string

// ByIP keys requests by client IP.
func ByIP(c *fiber.Ctx) string {
	return "ip:" + c.IP()
}

// NewHandler returns Fiber middleware enforcing limit requests per window.
// It fails open when the checker errors.
func NewHandler(checker Checker, limit int, window time.Duration, keyFn KeyFunc, logger types.Logger) fiber.Handler {
	if keyFn == nil {
		keyFn = ByIP
	}
	return func(c *fiber.Ctx) error {
		key := keyFn(c)

		result, err := checker.Allow(c.UserContext(), key, limit, window)
		if err != nil {
			logger.Error("Rate limit check failed", "key", key, "error", err)
			return c.Next()
		}

		c.Set(HeaderLimit, strconv.Itoa(result.Limit))
		c.Set(HeaderRemaining, strconv.Itoa(result.Remaining))
		c.Set(HeaderReset, strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			logger.Warn("Rate limit exceeded", "key", key, "limit", result.Limit, "reset_at", result.ResetAt)
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		}
		return c.Next()
	}
}
