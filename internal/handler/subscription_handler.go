package handler

import (
	"context"
	"errors"
	"net/http"

	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/services"
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubscriptionReconciler interface {
	EnsureActiveSubscription(ctx context.Context, userID uuid.UUID) (subscription.View, error)
	Renew(ctx context.Context, userID uuid.UUID) (subscription.View, error)
	Get(ctx context.Context, userID uuid.UUID) (subscription.EventSubscription, error)
}

// SubscriptionHandler exposes the reconciler to the authenticated user.
type SubscriptionHandler struct {
	service SubscriptionReconciler
}

func NewSubscriptionHandler(service SubscriptionReconciler) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// Ensure handles POST /v1/subscriptions/ensure
func (h *SubscriptionHandler) Ensure(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeSubscriptionError(c, recap_errors.ErrUnauthorized)
		return
	}
	view, err := h.service.EnsureActiveSubscription(c.Request.Context(), userID)
	if err != nil {
		writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.SubscriptionResponse{Success: true, Subscription: &view})
}

// Renew handles POST /v1/subscriptions/renew
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeSubscriptionError(c, recap_errors.ErrUnauthorized)
		return
	}
	view, err := h.service.Renew(c.Request.Context(), userID)
	if err != nil {
		writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.SubscriptionResponse{Success: true, Subscription: &view})
}

// Get handles GET /v1/subscriptions
func (h *SubscriptionHandler) Get(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, recap_errors.ErrUnauthorized)
		return
	}
	row, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, recap_errors.ErrNotFound) && recap_errors.CodeOf(err) == recap_errors.CodeUnknown {
			err = recap_errors.New(recap_errors.CodeNoSubscription, "no subscription", err)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToSubscriptionStatusDTO(row)))
}

func writeSubscriptionError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(recap_errors.HTTPStatus(err), httpdto.SubscriptionResponse{
		Success: false,
		Error:   httpdto.ErrorMessage(err),
		Code:    string(recap_errors.CodeOf(err)),
	})
}
