package eventsapi

import (
	"fmt"
	"strings"
)

// EventTypeFilter matches subscriptions listening for eventType.
func EventTypeFilter(eventType string) string {
	return fmt.Sprintf("event_types:%q", eventType)
}

// TargetFilter matches subscriptions for eventType on targetResource.
func TargetFilter(eventType, targetResource string) string {
	return fmt.Sprintf("%s AND target_resource=%q", EventTypeFilter(eventType), targetResource)
}

// AnyEventTypeFilter matches subscriptions listening for any of eventTypes.
func AnyEventTypeFilter(eventTypes []string) string {
	parts := make([]string, 0, len(eventTypes))
	for _, t := range eventTypes {
		parts = append(parts, EventTypeFilter(t))
	}
	return strings.Join(parts, " OR ")
}
