package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitlabs/accounts-backend/pkg/response"
)

// WindowCounter counts hits for a key within a fixed window; satisfied by the
// Redis client. The returned count includes the current hit.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit applies a fixed-window per-client-IP limit, used on the public
// auth endpoints to slow credential stuffing. A nil counter or non-positive
// limit disables the middleware. Counter errors fail open: an unreachable
// Redis must not take login down with it.
func RateLimit(counter WindowCounter, limit int, window time.Duration) gin.HandlerFunc {
	if counter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ratelimit:" + c.FullPath() + ":" + c.ClientIP()
		count, err := counter.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			c.Next()
			return
		}
		if count > int64(limit) {
			response.TooManyRequests(c, "Too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
