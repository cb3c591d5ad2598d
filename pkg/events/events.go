package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeMeetingReady   = "meeting.ready"
	TypeDraftGenerated = "draft.generated"
	TypeDraftFailed    = "draft.failed"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

func New(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UnixMilli()}
}

// UserChannel is the per-user pub/sub channel.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("channel:user:%s", userID)
}

type Handler func(ctx context.Context, event Event) error

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler Handler) error
}

type Broker interface {
	Publisher
	Subscriber
}
