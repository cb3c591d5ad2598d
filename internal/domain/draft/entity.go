package draft

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusGenerated Status = "generated"
	StatusFailed    Status = "failed"
)

// EmailDraft is the audit record of one generation invocation. Rows are append only.
type EmailDraft struct {
	ID                    uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID                uuid.NullUUID `gorm:"type:uuid;index"`
	MeetingID             string        `gorm:"not null;index"`
	TranscriptID          string        `gorm:"not null"`
	Subject               string        `gorm:"type:text;not null;default:''"`
	Body                  string        `gorm:"type:text;not null;default:''"`
	Model                 sql.NullString
	InputTokens           sql.NullInt64
	OutputTokens          sql.NullInt64
	CostUSD               sql.NullFloat64 `gorm:"column:cost_usd"`
	Status                Status          `gorm:"type:varchar(16);not null"`
	GenerationStartedAt   time.Time       `gorm:"not null"`
	GenerationCompletedAt time.Time       `gorm:"not null"`
	GenerationDurationMs  int64           `gorm:"not null"`
	RetryCount            int             `gorm:"not null;default:0"`
	ErrorMessage          sql.NullString
	ArchiveKey            sql.NullString
	CreatedAt             time.Time `gorm:"default:now()"`
}

func (EmailDraft) TableName() string {
	return "email_drafts"
}
