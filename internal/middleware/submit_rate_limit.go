package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const submitRatePrefix = "rl:submit:"

// SubmitRateLimit caps submissions per session slot to maxPerMin in a fixed
// one minute window. Requests whose slot was minted on the spot are counted
// per IP instead, so dropping the cookie does not reset the budget. It is a
// no-op without Redis or with a non-positive limit, and fails open on cache
// errors.
func SubmitRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		key := submitRatePrefix + "slot:" + SessionSlot(c)
		if SessionIsNew(c) || SessionSlot(c) == "" {
			key = submitRatePrefix + "ip:" + c.IP()
		}
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			if logger != nil {
				logger.Warn("submit rate limit unavailable", slog.Any("error", err))
			}
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many submissions, try again later")
		}
		return c.Next()
	}
}
