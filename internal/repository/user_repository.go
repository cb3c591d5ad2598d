package repository

import (
	"context"
	"time"

	"recap-mail/internal/domain/user"
	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active", id).
		First(&u).Error
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).
		Joins("JOIN connected_accounts ca ON ca.user_id = users.id").
		Where("ca.external_id = ? AND users.is_active", externalID).
		First(&u).Error
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetConnectedAccount(ctx context.Context, userID uuid.UUID) (user.ConnectedAccount, error) {
	var a user.ConnectedAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&a).Error
	if err != nil {
		return user.ConnectedAccount{}, mapError(err)
	}
	return a, nil
}

func (r *PostgresUserRepository) UpdateConnectedAccountTokens(ctx context.Context, a user.ConnectedAccount) error {
	res := r.db.WithContext(ctx).
		Model(&user.ConnectedAccount{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"access_token_sealed":  a.AccessTokenSealed,
			"refresh_token_sealed": a.RefreshTokenSealed,
			"token_expiry":         a.TokenExpiry,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return recap_errors.ErrNotFound
	}
	return nil
}
