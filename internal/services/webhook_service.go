package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"recap-mail/internal/observe"
	"recap-mail/internal/repository"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/events"
	"recap-mail/pkg/logger"

	"github.com/google/uuid"
)

const (
	EventConferenceEnded     = "google.workspace.meet.conference.v2.ended"
	EventTranscriptGenerated = "google.workspace.meet.transcript.v2.fileGenerated"
)

// WorkspaceEvent is a CloudEvent delivered through the Pub/Sub push endpoint.
type WorkspaceEvent struct {
	ID      string
	Type    string
	Source  string
	Subject string
	Time    time.Time
	Data    json.RawMessage
}

// SubscriptionName extracts "subscriptions/<id>" from the event source.
func (e WorkspaceEvent) SubscriptionName() string {
	i := strings.Index(e.Source, "subscriptions/")
	if i < 0 {
		return ""
	}
	return e.Source[i:]
}

type eventData struct {
	ConferenceRecord *struct {
		Name string `json:"name"`
	} `json:"conferenceRecord"`
	Transcript *struct {
		Name string `json:"name"`
	} `json:"transcript"`
}

type MeetingReady struct {
	MeetingID    string    `json:"meetingId"`
	TranscriptID string    `json:"transcriptId,omitempty"`
	EventType    string    `json:"eventType"`
	EventID      string    `json:"eventId"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// ParseMeetingReady pulls the conference record and transcript names out of
// the event. The subject is used when the payload omits the resource.
func ParseMeetingReady(e WorkspaceEvent) MeetingReady {
	out := MeetingReady{EventType: e.Type, EventID: e.ID, OccurredAt: e.Time}

	var data eventData
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil {
		if data.Transcript != nil {
			out.TranscriptID = data.Transcript.Name
		}
		if data.ConferenceRecord != nil {
			out.MeetingID = data.ConferenceRecord.Name
		}
	}

	resource := strings.TrimPrefix(e.Subject, "//meet.googleapis.com/")
	if out.TranscriptID == "" && strings.Contains(resource, "/transcripts/") {
		out.TranscriptID = resource
	}
	if out.MeetingID == "" {
		name := out.TranscriptID
		if name == "" {
			name = resource
		}
		if i := strings.Index(name, "/transcripts/"); i >= 0 {
			name = name[:i]
		}
		out.MeetingID = name
	}
	return out
}

// EventDeduper remembers event ids across push redeliveries.
type EventDeduper interface {
	MarkSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// WebhookService routes pushed Workspace events to the owning user's channel.
type WebhookService struct {
	subRepo   repository.SubscriptionRepository
	publisher events.Publisher
	deduper   EventDeduper
	observer  observe.Observer
}

func NewWebhookService(subRepo repository.SubscriptionRepository, publisher events.Publisher, observer observe.Observer) *WebhookService {
	if observer == nil {
		observer = observe.Nop
	}
	return &WebhookService{subRepo: subRepo, publisher: publisher, observer: observer}
}

// WithDeduper drops events whose id was already routed. Deduper errors let
// the event through.
func (s *WebhookService) WithDeduper(d EventDeduper) *WebhookService {
	s.deduper = d
	return s
}

// HandleEvent returns recap_errors.ErrNotFound when no local subscription
// owns the event.
func (s *WebhookService) HandleEvent(ctx context.Context, e WorkspaceEvent) (uuid.UUID, error) {
	name := e.SubscriptionName()
	row, err := s.subRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, recap_errors.ErrNotFound) {
			s.observer.OnEvent(ctx, observe.WebhookUnrouted, observe.Fields{
				"subscription": name,
				"event_type":   e.Type,
				"event_id":     e.ID,
			})
		}
		return uuid.Nil, err
	}

	if s.deduper != nil && e.ID != "" {
		seen, err := s.deduper.MarkSeen(ctx, e.ID)
		if err == nil && seen {
			s.observer.OnEvent(ctx, observe.WebhookDuplicate, observe.Fields{
				"user_id":  row.UserID.String(),
				"event_id": e.ID,
			})
			return row.UserID, nil
		}
	}

	ready := ParseMeetingReady(e)
	ctx = logger.WithMeetingID(ctx, ready.MeetingID)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.UserChannel(row.UserID), events.New(events.TypeMeetingReady, ready)); err != nil {
			if s.deduper != nil && e.ID != "" {
				_ = s.deduper.Forget(ctx, e.ID)
			}
			return uuid.Nil, err
		}
	}

	s.observer.OnEvent(ctx, observe.WebhookRouted, observe.Fields{
		"user_id":    row.UserID.String(),
		"event_type": e.Type,
		"meeting_id": ready.MeetingID,
	})
	return row.UserID, nil
}
