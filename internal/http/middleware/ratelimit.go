package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type RateLimiterOptions struct {
	Window      time.Duration
	MaxRequests int64
}

// RateLimiter is a fixed-window limiter keyed by client IP. Redis being
// down fails open: availability over strictness.
func RateLimiter(log *logger.Logger, rdb *redis.Client, opts RateLimiterOptions) gin.HandlerFunc {
	limLog := log.With("middleware", "RateLimiter")
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())
		ctx := c.Request.Context()

		current, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			limLog.Warn("Rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if current == 1 {
			if err := rdb.Expire(ctx, key, opts.Window).Err(); err != nil {
				limLog.Warn("Failed to set rate limit expiry", "error", err)
			}
		}
		if current > opts.MaxRequests {
			ttl, _ := rdb.TTL(ctx, key).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests. Please try again later.",
				"retryAfter": int(ttl.Seconds()),
			})
			return
		}
		c.Next()
	}
}
