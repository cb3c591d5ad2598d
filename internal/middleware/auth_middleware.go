package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recap-mail/internal/services"
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.Authenticate(c.Request.Context(), extractBearer(c))
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, recap_errors.ErrUnauthorized) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, httpdto.NewErrorResponse("unauthorized", string(recap_errors.CodeAuthFailure)))
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), userID)
		ctx = logger.WithUserID(ctx, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
