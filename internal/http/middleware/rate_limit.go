package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit throttles by client IP. If the limiter itself fails the request
// is let through.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		decision, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			slog.WarnContext(ctx, "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewError("Too many attempts. Please try again later.", nil))
			return
		}

		c.Next()
	}
}
