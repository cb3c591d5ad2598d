package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"recap-mail/internal/domain/user"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SeedAccount describes a user with an already authorised Google account.
// Tokens must be sealed by the caller with the service's token cipher.
type SeedAccount struct {
	Email              string
	DisplayName        string
	ExternalID         string
	Scopes             []string
	RefreshTokenSealed []byte
}

// SeedConnectedUser creates the user and its connected account, or updates
// the account tokens when a user with the same external id already exists.
func SeedConnectedUser(in SeedAccount) (*user.User, error) {
	if in.ExternalID == "" {
		return nil, fmt.Errorf("external id is required")
	}

	var out user.User
	err := DB.Transaction(func(tx *gorm.DB) error {
		var account user.ConnectedAccount
		err := tx.Where("external_id = ?", in.ExternalID).First(&account).Error
		switch {
		case err == nil:
			if err := tx.Model(&account).Updates(map[string]interface{}{
				"refresh_token_sealed": in.RefreshTokenSealed,
				"access_token_sealed":  nil,
				"token_expiry":         nil,
				"scopes":               pq.StringArray(in.Scopes),
				"updated_at":           time.Now(),
			}).Error; err != nil {
				return err
			}
			log.Printf("Updated tokens of connected account %s", in.ExternalID)
			return tx.First(&out, "id = ?", account.UserID).Error
		case err != gorm.ErrRecordNotFound:
			return err
		}

		out = user.User{
			ID:          uuid.New(),
			Email:       sql.NullString{String: in.Email, Valid: in.Email != ""},
			DisplayName: in.DisplayName,
			IsActive:    true,
		}
		if err := tx.Create(&out).Error; err != nil {
			return err
		}
		account = user.ConnectedAccount{
			ID:                 uuid.New(),
			UserID:             out.ID,
			Provider:           "google",
			ExternalID:         in.ExternalID,
			Email:              out.Email,
			Scopes:             pq.StringArray(in.Scopes),
			RefreshTokenSealed: in.RefreshTokenSealed,
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		log.Printf("Created user %s for connected account %s", out.ID, in.ExternalID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed connected user: %w", err)
	}
	return &out, nil
}
