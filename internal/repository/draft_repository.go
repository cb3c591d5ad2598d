package repository

import (
	"context"
	"time"

	"recap-mail/internal/domain/draft"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresDraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &PostgresDraftRepository{db: db}
}

func (r *PostgresDraftRepository) Insert(ctx context.Context, d *draft.EmailDraft) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return mapError(r.db.WithContext(ctx).Create(d).Error)
}

func (r *PostgresDraftRepository) GetByID(ctx context.Context, id uuid.UUID) (draft.EmailDraft, error) {
	var d draft.EmailDraft
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return draft.EmailDraft{}, mapError(err)
	}
	return d, nil
}

const (
	defaultDraftListLimit = 20
	maxDraftListLimit     = 100
)

// ListByMeeting returns userID's newest drafts for meetingID. A meeting is
// shared by every participant, so the owner filter is part of the query
// and the limit applies to that user's rows only.
func (r *PostgresDraftRepository) ListByMeeting(ctx context.Context, userID uuid.UUID, meetingID string, limit int) ([]draft.EmailDraft, error) {
	var drafts []draft.EmailDraft
	if err := listByMeetingQuery(r.db.WithContext(ctx), userID, meetingID, limit).Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

func listByMeetingQuery(tx *gorm.DB, userID uuid.UUID, meetingID string, limit int) *gorm.DB {
	if limit <= 0 || limit > maxDraftListLimit {
		limit = defaultDraftListLimit
	}
	return tx.Model(&draft.EmailDraft{}).
		Where("meeting_id = ? AND user_id = ?", meetingID, userID).
		Order("created_at DESC").
		Limit(limit)
}
