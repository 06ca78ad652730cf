package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// withRateLimit enforces a fixed per-minute request budget per client
// IP, counted in Redis so the limit holds across replicas. Redis
// failures fail open: throttling is protection, not a gate.
func withRateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || perMinute <= 0 {
				return next(c)
			}
			ctx := c.Request().Context()
			window := time.Now().Unix() / 60
			key := fmt.Sprintf("ratelimit:%s:%d", c.RealIP(), window)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				rdb.Expire(ctx, key, time.Minute)
			}
			if count > int64(perMinute) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
