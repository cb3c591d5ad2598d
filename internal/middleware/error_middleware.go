package middleware

import (
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error when the handler did
// not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		c.JSON(recap_errors.HTTPStatus(err), httpdto.NewErrorResponseFrom(err))
	}
}
