package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"recap-mail/internal/completion"
	"recap-mail/internal/domain/draft"
	"recap-mail/internal/observe"
	"recap-mail/internal/repository"
	"recap-mail/internal/resilience"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/events"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// DraftArchiver stores the raw exchange of a generation attempt.
type DraftArchiver interface {
	PutJSON(ctx context.Context, key string, v interface{}) error
}

type DraftConfig struct {
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	// RecordTimeout bounds the archive, insert and publish that follow the
	// completion calls. They run even when the caller has gone away.
	RecordTimeout time.Duration
}

const defaultRecordTimeout = 10 * time.Second

// DraftContext is what the caller knows about the meeting.
type DraftContext struct {
	UserID     uuid.UUID
	Topic      string
	Transcript string
	Attendees  []string
	Template   string
	Voice      string
}

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

type DraftError struct {
	Code      recap_errors.Code `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Status    int               `json:"-"`
}

type GenerateDraftResult struct {
	Success    bool        `json:"success"`
	DraftID    string      `json:"draftId,omitempty"`
	Subject    *string     `json:"subject,omitempty"`
	Body       *string     `json:"body,omitempty"`
	Model      string      `json:"model,omitempty"`
	Tokens     *TokenUsage `json:"tokens,omitempty"`
	CostUSD    *float64    `json:"costUsd,omitempty"`
	DurationMs int64       `json:"durationMs"`
	Attempts   int         `json:"attempts"`
	Error      *DraftError `json:"error,omitempty"`
}

// Err returns the failure as a classified error, nil on success.
func (r GenerateDraftResult) Err() error {
	if r.Error == nil {
		return nil
	}
	return &recap_errors.Error{Code: r.Error.Code, Retryable: r.Error.Retryable, Status: r.Error.Status, Message: r.Error.Message}
}

type DraftService struct {
	draftRepo repository.DraftRepository
	completer completion.Completer
	archiver  DraftArchiver
	publisher events.Publisher
	observer  observe.Observer
	cfg       DraftConfig
	timer     backoff.Timer
	now       func() time.Time
}

// NewDraftService wires the generator. archiver and publisher are optional.
func NewDraftService(
	draftRepo repository.DraftRepository,
	completer completion.Completer,
	archiver DraftArchiver,
	publisher events.Publisher,
	observer observe.Observer,
	cfg DraftConfig,
) *DraftService {
	if observer == nil {
		observer = observe.Nop
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = resilience.DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = resilience.DefaultBaseDelay
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 1024
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = defaultRecordTimeout
	}
	return &DraftService{
		draftRepo: draftRepo,
		completer: completer,
		archiver:  archiver,
		publisher: publisher,
		observer:  observer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// GenerateDraft turns a transcript into an email draft and records exactly
// one draft row for the invocation, except when the transcript is empty.
func (s *DraftService) GenerateDraft(ctx context.Context, meetingID, transcriptID string, in DraftContext) GenerateDraftResult {
	started := s.now()

	if strings.TrimSpace(in.Transcript) == "" {
		s.observer.OnEvent(ctx, observe.DraftFailed, observe.Fields{
			"meeting_id": meetingID,
			"code":       string(recap_errors.CodeEmptyTranscript),
			"attempts":   0,
		})
		return GenerateDraftResult{
			DurationMs: s.now().Sub(started).Milliseconds(),
			Error: &DraftError{
				Code:    recap_errors.CodeEmptyTranscript,
				Message: "transcript is empty",
			},
		}
	}

	row := &draft.EmailDraft{
		ID:                  uuid.New(),
		MeetingID:           meetingID,
		TranscriptID:        transcriptID,
		GenerationStartedAt: started,
	}
	if in.UserID != uuid.Nil {
		row.UserID = uuid.NullUUID{UUID: in.UserID, Valid: true}
	}

	prompt, err := BuildDraftPrompt(in)
	if err != nil {
		return s.fail(ctx, row, 0, &DraftError{
			Code:    recap_errors.CodePromptFailure,
			Message: err.Error(),
		}, nil)
	}

	req := completion.Request{System: DraftSystemPrompt, Prompt: prompt, MaxTokens: s.cfg.MaxTokens}
	var resp completion.Response

	attempts, err := resilience.Retry(ctx, resilience.NewPolicy(s.cfg.BaseDelay, s.cfg.MaxAttempts), s.timer,
		func(ctx context.Context, attempt int) error {
			s.observer.OnEvent(ctx, observe.DraftAttempt, observe.Fields{
				"meeting_id": meetingID,
				"attempt":    attempt,
			})
			r, err := s.complete(ctx, req)
			if err != nil {
				v := resilience.Classify(err)
				s.observer.OnEvent(ctx, observe.DraftAttemptFailed, observe.Fields{
					"meeting_id": meetingID,
					"attempt":    attempt,
					"category":   string(v.Category),
					"retryable":  v.Retryable,
					"error":      err.Error(),
				})
				return err
			}
			resp = r
			return nil
		}, nil)

	if err != nil {
		classified := resilience.AsError(err, "generate draft")
		return s.fail(ctx, row, attempts, &DraftError{
			Code:      classified.Code,
			Message:   err.Error(),
			Retryable: classified.Retryable,
			Status:    classified.Status,
		}, &req)
	}
	return s.succeed(ctx, row, attempts, req, resp)
}

// complete makes one call bounded by the per attempt timeout. Expiry of
// that deadline is reported as a timeout even when the client surfaces it
// differently.
func (s *DraftService) complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	resp, err := s.completer.Complete(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("completion exceeded %s: %w (%v)", s.cfg.Timeout, context.DeadlineExceeded, err)
	}
	return resp, err
}

// recordContext keeps the caller's values but not its cancellation, so a
// disconnected client still leaves its draft row behind.
func (s *DraftService) recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RecordTimeout)
}

func (s *DraftService) succeed(ctx context.Context, row *draft.EmailDraft, attempts int, req completion.Request, resp completion.Response) GenerateDraftResult {
	ctx, cancel := s.recordContext(ctx)
	defer cancel()

	subject, body := ParseDraft(resp.Text)
	model := resp.Model
	if model == "" {
		model = s.completer.Model()
	}
	cost := Cost(model, resp.InputTokens, resp.OutputTokens)

	completed := s.now()
	row.Subject = subject
	row.Body = body
	row.Model = sql.NullString{String: model, Valid: true}
	row.InputTokens = sql.NullInt64{Int64: int64(resp.InputTokens), Valid: true}
	row.OutputTokens = sql.NullInt64{Int64: int64(resp.OutputTokens), Valid: true}
	row.CostUSD = sql.NullFloat64{Float64: cost, Valid: true}
	row.Status = draft.StatusGenerated
	row.GenerationCompletedAt = completed
	row.GenerationDurationMs = completed.Sub(row.GenerationStartedAt).Milliseconds()
	row.RetryCount = attempts

	s.archive(ctx, row, req, resp.Text, "")
	s.persist(ctx, row)

	fields := observe.Fields{
		"meeting_id":    row.MeetingID,
		"draft_id":      row.ID.String(),
		"model":         model,
		"attempts":      attempts,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
		"cost_usd":      cost,
		"duration_ms":   row.GenerationDurationMs,
	}
	s.observer.OnEvent(ctx, observe.DraftGenerated, fields)
	s.publish(ctx, row, events.TypeDraftGenerated)

	return GenerateDraftResult{
		Success:    true,
		DraftID:    row.ID.String(),
		Subject:    &subject,
		Body:       &body,
		Model:      model,
		Tokens:     &TokenUsage{Input: resp.InputTokens, Output: resp.OutputTokens},
		CostUSD:    &cost,
		DurationMs: row.GenerationDurationMs,
		Attempts:   attempts,
	}
}

// fail records a failed invocation. req is nil when no remote call was made.
func (s *DraftService) fail(ctx context.Context, row *draft.EmailDraft, attempts int, derr *DraftError, req *completion.Request) GenerateDraftResult {
	ctx, cancel := s.recordContext(ctx)
	defer cancel()

	completed := s.now()
	row.Subject = ""
	row.Body = ""
	row.Status = draft.StatusFailed
	row.GenerationCompletedAt = completed
	row.GenerationDurationMs = completed.Sub(row.GenerationStartedAt).Milliseconds()
	row.RetryCount = attempts
	row.ErrorMessage = sql.NullString{String: derr.Message, Valid: true}

	if req != nil {
		s.archive(ctx, row, *req, "", derr.Message)
	}
	s.persist(ctx, row)

	s.observer.OnEvent(ctx, observe.DraftFailed, observe.Fields{
		"meeting_id":  row.MeetingID,
		"draft_id":    row.ID.String(),
		"attempts":    attempts,
		"code":        string(derr.Code),
		"error":       derr.Message,
		"duration_ms": row.GenerationDurationMs,
	})
	s.publish(ctx, row, events.TypeDraftFailed)

	return GenerateDraftResult{
		DraftID:    row.ID.String(),
		DurationMs: row.GenerationDurationMs,
		Attempts:   attempts,
		Error:      derr,
	}
}

func (s *DraftService) persist(ctx context.Context, row *draft.EmailDraft) {
	if err := s.draftRepo.Insert(ctx, row); err != nil {
		s.observer.OnEvent(ctx, observe.DraftPersistFailed, observe.Fields{
			"meeting_id": row.MeetingID,
			"draft_id":   row.ID.String(),
			"status":     string(row.Status),
			"error":      err.Error(),
		})
	}
}

type archivedAttempt struct {
	DraftID      string    `json:"draftId"`
	MeetingID    string    `json:"meetingId"`
	TranscriptID string    `json:"transcriptId"`
	Status       string    `json:"status"`
	System       string    `json:"system"`
	Prompt       string    `json:"prompt"`
	Response     string    `json:"response,omitempty"`
	Error        string    `json:"error,omitempty"`
	Attempts     int       `json:"attempts"`
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt"`
}

func ArchiveKey(meetingID string, draftID uuid.UUID) string {
	return fmt.Sprintf("drafts/%s/%s.json", meetingID, draftID)
}

func (s *DraftService) archive(ctx context.Context, row *draft.EmailDraft, req completion.Request, response, errMsg string) {
	if s.archiver == nil {
		return
	}
	key := ArchiveKey(row.MeetingID, row.ID)
	err := s.archiver.PutJSON(ctx, key, archivedAttempt{
		DraftID:      row.ID.String(),
		MeetingID:    row.MeetingID,
		TranscriptID: row.TranscriptID,
		Status:       string(row.Status),
		System:       req.System,
		Prompt:       req.Prompt,
		Response:     response,
		Error:        errMsg,
		Attempts:     row.RetryCount,
		StartedAt:    row.GenerationStartedAt,
		CompletedAt:  row.GenerationCompletedAt,
	})
	if err != nil {
		s.observer.OnEvent(ctx, observe.DraftArchiveFailed, observe.Fields{
			"meeting_id": row.MeetingID,
			"draft_id":   row.ID.String(),
			"error":      err.Error(),
		})
		return
	}
	row.ArchiveKey = sql.NullString{String: key, Valid: true}
}

type draftEventPayload struct {
	DraftID   string `json:"draftId"`
	MeetingID string `json:"meetingId"`
	Status    string `json:"status"`
	Subject   string `json:"subject,omitempty"`
}

func (s *DraftService) publish(ctx context.Context, row *draft.EmailDraft, eventType string) {
	if s.publisher == nil || !row.UserID.Valid {
		return
	}
	err := s.publisher.Publish(ctx, events.UserChannel(row.UserID.UUID), events.New(eventType, draftEventPayload{
		DraftID:   row.ID.String(),
		MeetingID: row.MeetingID,
		Status:    string(row.Status),
		Subject:   row.Subject,
	}))
	if err != nil {
		s.observer.OnEvent(ctx, observe.DraftPublishFailed, observe.Fields{
			"draft_id": row.ID.String(),
			"error":    err.Error(),
		})
	}
}

// ListDrafts returns userID's most recent drafts for a meeting.
func (s *DraftService) ListDrafts(ctx context.Context, userID uuid.UUID, meetingID string, limit int) ([]draft.EmailDraft, error) {
	return s.draftRepo.ListByMeeting(ctx, userID, meetingID, limit)
}

func (s *DraftService) GetDraft(ctx context.Context, id uuid.UUID) (draft.EmailDraft, error) {
	return s.draftRepo.GetByID(ctx, id)
}
