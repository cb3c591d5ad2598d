// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"

	"github.com/gin-gonic/gin"
)

// writeError renders err with the status and code of the failure taxonomy.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(recap_errors.HTTPStatus(err), httpdto.NewErrorResponseFrom(err))
}
