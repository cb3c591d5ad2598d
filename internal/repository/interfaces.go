package repository

import (
	"context"

	"recap-mail/internal/domain/draft"
	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (user.User, error)

	GetConnectedAccount(ctx context.Context, userID uuid.UUID) (user.ConnectedAccount, error)
	UpdateConnectedAccountTokens(ctx context.Context, a user.ConnectedAccount) error
}

// SubscriptionRepository stores the single per-user mirror of the remote
// subscription. All creation goes through Upsert keyed on user id.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (subscription.EventSubscription, error)
	GetByName(ctx context.Context, name string) (subscription.EventSubscription, error)
	Upsert(ctx context.Context, s *subscription.EventSubscription) error
	Update(ctx context.Context, s subscription.EventSubscription) error
}

type DraftRepository interface {
	Insert(ctx context.Context, d *draft.EmailDraft) error
	GetByID(ctx context.Context, id uuid.UUID) (draft.EmailDraft, error)
	ListByMeeting(ctx context.Context, userID uuid.UUID, meetingID string, limit int) ([]draft.EmailDraft, error)
}
