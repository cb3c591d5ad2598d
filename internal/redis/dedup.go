package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key pattern: webhook:event:{event_id}, TTL = window.

const DefaultDedupWindow = 24 * time.Hour

// EventDeduper remembers delivered push event ids so redeliveries are
// acknowledged without being routed twice.
type EventDeduper struct {
	client *goredis.Client
	window time.Duration
}

func NewEventDeduper(client *goredis.Client, window time.Duration) *EventDeduper {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &EventDeduper{client: client, window: window}
}

func eventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}

// MarkSeen records eventID and reports whether it had been recorded before.
func (d *EventDeduper) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	created, err := d.client.SetNX(ctx, eventKey(eventID), time.Now().Unix(), d.window).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}

// Forget drops eventID so a failed delivery can be routed on redelivery.
func (d *EventDeduper) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, eventKey(eventID)).Err()
}
