package httpdto

import (
	"time"

	"recap-mail/internal/domain/subscription"
)

// SubscriptionResponse is returned by POST /v1/subscriptions/ensure and /renew.
type SubscriptionResponse struct {
	Success      bool               `json:"success"`
	Subscription *subscription.View `json:"subscription,omitempty"`
	Error        string             `json:"error,omitempty"`
	Code         string             `json:"code,omitempty"`
}

// SubscriptionStatusDTO is the local mirror row returned by GET /v1/subscriptions.
type SubscriptionStatusDTO struct {
	Name            string     `json:"name"`
	TargetResource  string     `json:"target_resource"`
	EventTypes      []string   `json:"event_types"`
	Status          string     `json:"status"`
	ExpireTime      time.Time  `json:"expire_time"`
	LastRenewedAt   *time.Time `json:"last_renewed_at,omitempty"`
	RenewalFailures int        `json:"renewal_failures"`
	LastError       string     `json:"last_error,omitempty"`
}

func ToSubscriptionStatusDTO(s subscription.EventSubscription) SubscriptionStatusDTO {
	dto := SubscriptionStatusDTO{
		Name:            s.SubscriptionName,
		TargetResource:  s.TargetResource,
		EventTypes:      []string(s.EventTypes),
		Status:          string(s.Status),
		ExpireTime:      s.ExpireTime,
		RenewalFailures: s.RenewalFailures,
	}
	if s.LastRenewedAt.Valid {
		t := s.LastRenewedAt.Time
		dto.LastRenewedAt = &t
	}
	if s.LastError.Valid {
		dto.LastError = s.LastError.String
	}
	return dto
}
