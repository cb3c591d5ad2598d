package services

import (
	"context"
	"encoding/json"
	"testing"

	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/observe"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeetingReady(t *testing.T) {
	tests := []struct {
		name       string
		event      WorkspaceEvent
		meeting    string
		transcript string
	}{
		{
			name: "transcript payload",
			event: WorkspaceEvent{
				Type: EventTranscriptGenerated,
				Data: json.RawMessage(`{"transcript":{"name":"conferenceRecords/abc/transcripts/t1"}}`),
			},
			meeting:    "conferenceRecords/abc",
			transcript: "conferenceRecords/abc/transcripts/t1",
		},
		{
			name: "conference payload",
			event: WorkspaceEvent{
				Type: EventConferenceEnded,
				Data: json.RawMessage(`{"conferenceRecord":{"name":"conferenceRecords/abc"}}`),
			},
			meeting: "conferenceRecords/abc",
		},
		{
			name: "subject only",
			event: WorkspaceEvent{
				Type:    EventTranscriptGenerated,
				Subject: "//meet.googleapis.com/conferenceRecords/xyz/transcripts/t9",
			},
			meeting:    "conferenceRecords/xyz",
			transcript: "conferenceRecords/xyz/transcripts/t9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMeetingReady(tt.event)
			assert.Equal(t, tt.meeting, got.MeetingID)
			assert.Equal(t, tt.transcript, got.TranscriptID)
		})
	}
}

func TestWebhookService_RoutesToOwner(t *testing.T) {
	subs := newFakeSubRepo()
	userID := uuid.New()
	subs.rows[userID] = subscription.EventSubscription{UserID: userID, SubscriptionName: "subscriptions/s1"}
	pub := &fakePublisher{}
	rec := &observe.Recorder{}
	svc := NewWebhookService(subs, pub, rec)

	got, err := svc.HandleEvent(context.Background(), WorkspaceEvent{
		ID:     "e1",
		Type:   EventConferenceEnded,
		Source: "//workspaceevents.googleapis.com/subscriptions/s1",
		Data:   json.RawMessage(`{"conferenceRecord":{"name":"conferenceRecords/abc"}}`),
	})
	require.NoError(t, err)

	assert.Equal(t, userID, got)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.UserChannel(userID), pub.channels[0])
	assert.Equal(t, events.TypeMeetingReady, pub.events[0].Type)
	assert.Equal(t, []observe.Stage{observe.WebhookRouted}, rec.Stages())
}

func TestWebhookService_UnknownSubscription(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewWebhookService(newFakeSubRepo(), pub, nil)

	_, err := svc.HandleEvent(context.Background(), WorkspaceEvent{Source: "//workspaceevents.googleapis.com/subscriptions/nope"})

	assert.ErrorIs(t, err, recap_errors.ErrNotFound)
	assert.Empty(t, pub.events)
}

type memDeduper struct {
	seen map[string]bool
}

func (d *memDeduper) MarkSeen(_ context.Context, id string) (bool, error) {
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *memDeduper) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

func TestWebhookService_DropsRedelivery(t *testing.T) {
	subs := newFakeSubRepo()
	userID := uuid.New()
	subs.rows[userID] = subscription.EventSubscription{UserID: userID, SubscriptionName: "subscriptions/s1"}
	pub := &fakePublisher{}
	rec := &observe.Recorder{}
	svc := NewWebhookService(subs, pub, rec).WithDeduper(&memDeduper{seen: map[string]bool{}})
	e := WorkspaceEvent{ID: "e1", Type: EventConferenceEnded, Source: "//workspaceevents.googleapis.com/subscriptions/s1"}

	_, err := svc.HandleEvent(context.Background(), e)
	require.NoError(t, err)
	got, err := svc.HandleEvent(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, userID, got)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, []observe.Stage{observe.WebhookRouted, observe.WebhookDuplicate}, rec.Stages())
}
