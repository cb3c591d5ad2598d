package subscription

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// EventSubscription mirrors the remote push subscription owned by one user.
// The remote Event API is the system of record; this row is reconciled lazily.
type EventSubscription struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	SubscriptionName string         `gorm:"not null;index"`
	TargetResource   string         `gorm:"not null"`
	EventTypes       pq.StringArray `gorm:"type:text[];not null"`
	Status           Status         `gorm:"type:varchar(16);not null;default:'active'"`
	ExpireTime       time.Time      `gorm:"not null"`
	LastRenewedAt    sql.NullTime
	RenewalFailures  int `gorm:"not null;default:0"`
	LastError        sql.NullString
	CreatedAt        time.Time `gorm:"default:now()"`
	UpdatedAt        time.Time `gorm:"default:now()"`
}

func (EventSubscription) TableName() string {
	return "event_subscriptions"
}

// IsActive reports whether the row still claims a live remote subscription at now.
func (s EventSubscription) IsActive(now time.Time) bool {
	return s.Status == StatusActive && s.ExpireTime.After(now)
}

// View is the caller facing projection returned by the reconciler.
type View struct {
	Name       string    `json:"name"`
	ExpireTime time.Time `json:"expireTime"`
	State      string    `json:"state"`
}

func (s EventSubscription) View() View {
	state := "ACTIVE"
	if s.Status != StatusActive {
		state = "EXPIRED"
	}
	return View{Name: s.SubscriptionName, ExpireTime: s.ExpireTime, State: state}
}
