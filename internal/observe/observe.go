// Package observe carries checkpoint events out of the reconciler and the
// draft generator without either of them knowing about logs or metrics.
package observe

import (
	"context"
	"sync"
)

type Stage string

const (
	SubscriptionFastPath      Stage = "subscription.fast_path"
	SubscriptionDiscover      Stage = "subscription.discover"
	SubscriptionDiscoverError Stage = "subscription.discover_failed"
	SubscriptionDiscovered    Stage = "subscription.discovered"
	SubscriptionCreated       Stage = "subscription.created"
	SubscriptionConflict      Stage = "subscription.conflict"
	SubscriptionOrphanDeleted Stage = "subscription.orphan_deleted"
	SubscriptionUnresolved    Stage = "subscription.unresolved_conflict"
	SubscriptionRenewed       Stage = "subscription.renewed"
	SubscriptionRenewFailed   Stage = "subscription.renew_failed"
	SubscriptionExpired       Stage = "subscription.expired"
	SubscriptionPersistFailed Stage = "subscription.persist_failed"

	DraftAttempt       Stage = "draft.attempt"
	DraftAttemptFailed Stage = "draft.attempt_failed"
	DraftGenerated     Stage = "draft.generated"
	DraftFailed        Stage = "draft.failed"
	DraftPersistFailed Stage = "draft.persist_failed"
	DraftArchiveFailed Stage = "draft.archive_failed"
	DraftPublishFailed Stage = "draft.publish_failed"

	WebhookRouted    Stage = "webhook.routed"
	WebhookUnrouted  Stage = "webhook.unrouted"
	WebhookDuplicate Stage = "webhook.duplicate"
)

type Fields map[string]interface{}

type Observer interface {
	OnEvent(ctx context.Context, stage Stage, fields Fields)
}

type nop struct{}

func (nop) OnEvent(context.Context, Stage, Fields) {}

// Nop discards every event.
var Nop Observer = nop{}

type multi []Observer

func (m multi) OnEvent(ctx context.Context, stage Stage, fields Fields) {
	for _, o := range m {
		o.OnEvent(ctx, stage, fields)
	}
}

// Multi fans each event out to all observers in order. Nil entries are skipped.
func Multi(observers ...Observer) Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return Nop
	}
	return out
}

// Event is a recorded checkpoint.
type Event struct {
	Stage  Stage
	Fields Fields
}

// Recorder keeps every event it sees. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(_ context.Context, stage Stage, fields Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Stage: stage, Fields: fields})
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the stage of every recorded event in order.
func (r *Recorder) Stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}
