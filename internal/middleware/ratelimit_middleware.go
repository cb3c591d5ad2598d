package middleware

import (
	"context"
	"net/http"
	"strconv"

	"recap-mail/internal/redis"
	"recap-mail/internal/services"
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"

	"github.com/gin-gonic/gin"
)

type DraftLimiter interface {
	AllowDraft(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

// DraftRateLimitMiddleware caps draft generations per user. Apply after
// AuthMiddleware. A limiter outage lets the request through.
func DraftRateLimitMiddleware(limiter DraftLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok || limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.AllowDraft(c.Request.Context(), userID.String())
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("draft rate limit exceeded", string(recap_errors.CodeRateLimited)))
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
