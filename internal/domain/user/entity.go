package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User represents the users table. Identity itself is owned elsewhere; this
// row only anchors the connected account and its subscription.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email       sql.NullString
	DisplayName string
	IsActive    bool      `gorm:"default:true"`
	CreatedAt   time.Time `gorm:"default:now()"`
	UpdatedAt   time.Time `gorm:"default:now()"`

	Account *ConnectedAccount `gorm:"foreignKey:UserID"`
}

// ConnectedAccount represents the connected_accounts table: the user's third
// party account whose events we subscribe to. Tokens are stored sealed.
type ConnectedAccount struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Provider           string    `gorm:"not null;default:'google'"`
	ExternalID         string    `gorm:"not null;index"`
	Email              sql.NullString
	Scopes             pq.StringArray `gorm:"type:text[]"`
	AccessTokenSealed  []byte
	RefreshTokenSealed []byte
	TokenExpiry        sql.NullTime
	CreatedAt          time.Time `gorm:"default:now()"`
	UpdatedAt          time.Time `gorm:"default:now()"`
}

// TargetResource is the Workspace identity resource the user's events are published under.
func (a ConnectedAccount) TargetResource() string {
	return "//cloudidentity.googleapis.com/users/" + a.ExternalID
}

// HasScope reports whether the account granted scope.
func (a ConnectedAccount) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (User) TableName() string {
	return "users"
}

func (ConnectedAccount) TableName() string {
	return "connected_accounts"
}
