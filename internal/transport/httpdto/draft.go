package httpdto

import (
	"time"

	"recap-mail/internal/domain/draft"
)

// GenerateDraftRequest is used for POST /v1/meetings/:meetingId/drafts
type GenerateDraftRequest struct {
	TranscriptID string   `json:"transcriptId" binding:"required"`
	Transcript   string   `json:"transcript"`
	Topic        string   `json:"topic"`
	Attendees    []string `json:"attendees"`
	Template     string   `json:"template"`
	Voice        string   `json:"voice"`
}

// ListDraftsRequest holds query parameters for listing drafts of a meeting
type ListDraftsRequest struct {
	Limit int `form:"limit"`
}

// DraftDTO represents a stored draft row in API responses
type DraftDTO struct {
	ID           string   `json:"id"`
	MeetingID    string   `json:"meeting_id"`
	TranscriptID string   `json:"transcript_id"`
	Status       string   `json:"status"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Model        string   `json:"model,omitempty"`
	InputTokens  *int64   `json:"input_tokens,omitempty"`
	OutputTokens *int64   `json:"output_tokens,omitempty"`
	CostUSD      *float64 `json:"cost_usd,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
	RetryCount   int      `json:"retry_count"`
	ErrorMessage string   `json:"error_message,omitempty"`
	ArchiveURL   string   `json:"archive_url,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// ListDraftsResponse is returned when listing drafts
type ListDraftsResponse struct {
	Drafts []DraftDTO `json:"drafts"`
}

func ToDraftDTO(d draft.EmailDraft) DraftDTO {
	dto := DraftDTO{
		ID:           d.ID.String(),
		MeetingID:    d.MeetingID,
		TranscriptID: d.TranscriptID,
		Status:       string(d.Status),
		Subject:      d.Subject,
		Body:         d.Body,
		DurationMs:   d.GenerationDurationMs,
		RetryCount:   d.RetryCount,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
	if d.Model.Valid {
		dto.Model = d.Model.String
	}
	if d.InputTokens.Valid {
		v := d.InputTokens.Int64
		dto.InputTokens = &v
	}
	if d.OutputTokens.Valid {
		v := d.OutputTokens.Int64
		dto.OutputTokens = &v
	}
	if d.CostUSD.Valid {
		v := d.CostUSD.Float64
		dto.CostUSD = &v
	}
	if d.ErrorMessage.Valid {
		dto.ErrorMessage = d.ErrorMessage.String
	}
	return dto
}
