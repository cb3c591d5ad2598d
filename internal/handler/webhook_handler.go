package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"recap-mail/internal/services"
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventRouter interface {
	HandleEvent(ctx context.Context, e services.WorkspaceEvent) (uuid.UUID, error)
}

// WebhookHandler receives Pub/Sub pushes of Workspace events.
type WebhookHandler struct {
	router EventRouter
	token  string
}

// NewWebhookHandler creates the push handler. When token is set every push
// must carry it in the "token" query parameter.
func NewWebhookHandler(router EventRouter, token string) *WebhookHandler {
	return &WebhookHandler{router: router, token: token}
}

// Receive handles POST /v1/webhooks/events. Any non 2xx answer makes Pub/Sub
// redeliver, so events nobody owns are acknowledged with 200.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.token != "" && subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.token)) != 1 {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid push token", string(recap_errors.CodeAuthFailure)))
		return
	}

	var env httpdto.PushEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid push envelope", string(recap_errors.CodeValidationFailure)))
		return
	}
	payload, err := env.Message.Payload()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid push payload", string(recap_errors.CodeValidationFailure)))
		return
	}

	event := services.WorkspaceEvent{
		ID:      env.Message.Attr("ce-id"),
		Type:    env.Message.Attr("ce-type"),
		Source:  env.Message.Attr("ce-source"),
		Subject: env.Message.Attr("ce-subject"),
		Time:    env.Message.EventTime(),
		Data:    payload,
	}
	if event.ID == "" {
		event.ID = env.Message.MessageID
	}

	if _, err := h.router.HandleEvent(c.Request.Context(), event); err != nil {
		if errors.Is(err, recap_errors.ErrNotFound) {
			c.Status(http.StatusOK)
			return
		}
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
