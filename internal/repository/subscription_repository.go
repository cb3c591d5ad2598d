package repository

import (
	"context"
	"time"

	"recap-mail/internal/domain/subscription"
	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

func (r *PostgresSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (subscription.EventSubscription, error) {
	var s subscription.EventSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		return subscription.EventSubscription{}, mapError(err)
	}
	return s, nil
}

func (r *PostgresSubscriptionRepository) GetByName(ctx context.Context, name string) (subscription.EventSubscription, error) {
	var s subscription.EventSubscription
	err := r.db.WithContext(ctx).Where("subscription_name = ?", name).First(&s).Error
	if err != nil {
		return subscription.EventSubscription{}, mapError(err)
	}
	return s, nil
}

// Upsert writes the mirror row for s.UserID, replacing whatever the previous
// reconciliation stored. Last write wins.
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, s *subscription.EventSubscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_name",
			"target_resource",
			"event_types",
			"status",
			"expire_time",
			"last_renewed_at",
			"renewal_failures",
			"last_error",
			"updated_at",
		}),
	}).Create(s)
	return mapError(res.Error)
}

// Update overwrites every column of an existing row, zero values included.
// A row that no longer exists yields ErrNotFound rather than being recreated.
func (r *PostgresSubscriptionRepository) Update(ctx context.Context, s subscription.EventSubscription) error {
	if s.ID == uuid.Nil {
		return recap_errors.ErrNotFound
	}
	s.UpdatedAt = time.Now()
	res := updateSubscriptionQuery(r.db.WithContext(ctx), &s)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return recap_errors.ErrNotFound
	}
	return nil
}

func updateSubscriptionQuery(tx *gorm.DB, s *subscription.EventSubscription) *gorm.DB {
	return tx.Model(s).Select("*").Omit("id", "created_at").Updates(s)
}
