package services

import (
	"context"

	"recap-mail/internal/eventsapi"
	"recap-mail/internal/observe"

	"github.com/google/uuid"
)

// DiscoveryStrategy is one list query tried while looking for an existing
// remote subscription.
type DiscoveryStrategy struct {
	Name     string
	Filter   func(eventTypes []string, target string) string
	PageSize int
}

var (
	PreciseDiscovery = DiscoveryStrategy{
		Name: "precise",
		Filter: func(eventTypes []string, target string) string {
			return eventsapi.TargetFilter(eventTypes[0], target)
		},
		PageSize: 10,
	}
	// BroadDiscovery drops the target clause, which the filter grammar does
	// not always honour for subscriptions made by another client.
	BroadDiscovery = DiscoveryStrategy{
		Name: "broad",
		Filter: func(eventTypes []string, _ string) string {
			return eventsapi.EventTypeFilter(eventTypes[0])
		},
		PageSize: 50,
	}
	BroadestDiscovery = DiscoveryStrategy{
		Name: "broadest",
		Filter: func(eventTypes []string, _ string) string {
			return eventsapi.AnyEventTypeFilter(eventTypes)
		},
		PageSize: 100,
	}

	DefaultDiscovery = []DiscoveryStrategy{PreciseDiscovery, BroadDiscovery}
)

// discover runs strategies in order and returns the first record watching
// target. List failures count as no match.
func (s *SubscriptionService) discover(ctx context.Context, userID uuid.UUID, token, target string, strategies []DiscoveryStrategy) (eventsapi.Subscription, bool) {
	if len(s.cfg.EventTypes) == 0 {
		return eventsapi.Subscription{}, false
	}
	for _, st := range strategies {
		filter := st.Filter(s.cfg.EventTypes, target)
		s.observer.OnEvent(ctx, observe.SubscriptionDiscover, observe.Fields{
			"user_id":  userID.String(),
			"strategy": st.Name,
			"filter":   filter,
		})

		records, err := s.api.ListSubscriptions(ctx, token, filter, st.PageSize)
		if err != nil {
			s.observer.OnEvent(ctx, observe.SubscriptionDiscoverError, observe.Fields{
				"user_id":  userID.String(),
				"strategy": st.Name,
				"error":    err.Error(),
			})
			continue
		}
		for _, rec := range records {
			if rec.TargetResource == target && rec.State != "DELETED" {
				return rec, true
			}
		}
	}
	return eventsapi.Subscription{}, false
}
