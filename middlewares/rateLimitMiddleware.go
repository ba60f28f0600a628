package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware allows limit requests per client IP per window, counted in Redis.
// Without Redis it lets every request through.
func RateLimitMiddleware(limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := config.GetRedisDB()
		if client == nil {
			c.Next()
			return
		}
		key := "RateLimit:" + c.ClientIP()

		allowed, err := allowRequest(c.Request.Context(), client, key, limit, window)
		if err != nil {
			config.LogError(config.GetLogger(), "rateLimitMiddleware.go", "RateLimitMiddleware", "count request", key, err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// allowRequest counts one request in the window starting at the key's first hit.
// A counter whose expiry could not be set is dropped so the client is never throttled forever.
func allowRequest(ctx context.Context, client redis.Cmdable, key string, limit int64, window time.Duration) (bool, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			if delErr := client.Del(ctx, key).Err(); delErr != nil {
				config.LogError(config.GetLogger(), "rateLimitMiddleware.go", "allowRequest", "drop counter", key, delErr)
			}
			return true, err
		}
	}
	return count <= limit, nil
}
