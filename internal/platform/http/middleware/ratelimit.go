package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classifier_backend/internal/shared/ratelimiter"
)

// RateLimit rejects requests with 429 once l refuses them. A nil limiter lets everything through.
func RateLimit(l ratelimiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		ok, wait := l.Allow()
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			slog.WarnContext(c.Request.Context(), "rate limit exceeded",
				slog.String("ip", c.ClientIP()),
				slog.String("url", c.Request.URL.Path),
			)
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests."})
			return
		}
		c.Next()
	}
}
