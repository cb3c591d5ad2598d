package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/eventsapi"
	"recap-mail/internal/observe"
	"recap-mail/internal/repository"
	"recap-mail/internal/resilience"
	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CredentialProvider hands out a bearer token for the user's connected
// account, refreshing it when needed.
type CredentialProvider interface {
	GetValidCredential(ctx context.Context, userID uuid.UUID) (string, error)
}

// EventAPI is the subset of the Workspace Events client the reconciler uses.
type EventAPI interface {
	CreateSubscription(ctx context.Context, token string, req eventsapi.CreateRequest) (eventsapi.Subscription, error)
	ListSubscriptions(ctx context.Context, token, filter string, pageSize int) ([]eventsapi.Subscription, error)
	RenewSubscription(ctx context.Context, token, name string) (eventsapi.Subscription, error)
	DeleteSubscription(ctx context.Context, token, name string) error
}

type SubscriptionConfig struct {
	EventTypes []string
	Topic      string
	TTL        time.Duration
}

type SubscriptionService struct {
	userRepo  repository.UserRepository
	subRepo   repository.SubscriptionRepository
	creds     CredentialProvider
	api       EventAPI
	cfg       SubscriptionConfig
	discovery []DiscoveryStrategy
	observer  observe.Observer
	now       func() time.Time
}

func NewSubscriptionService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	creds CredentialProvider,
	api EventAPI,
	cfg SubscriptionConfig,
	observer observe.Observer,
) *SubscriptionService {
	if observer == nil {
		observer = observe.Nop
	}
	return &SubscriptionService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		creds:     creds,
		api:       api,
		cfg:       cfg,
		discovery: DefaultDiscovery,
		observer:  observer,
		now:       time.Now,
	}
}

// EnsureActiveSubscription makes sure the user has a live remote
// subscription mirrored locally and returns it.
func (s *SubscriptionService) EnsureActiveSubscription(ctx context.Context, userID uuid.UUID) (subscription.View, error) {
	account, err := s.userRepo.GetConnectedAccount(ctx, userID)
	if errors.Is(err, recap_errors.ErrNotFound) || (err == nil && account.ExternalID == "") {
		return subscription.View{}, recap_errors.New(recap_errors.CodeNotConnected, "no connected account", err)
	}
	if err != nil {
		return subscription.View{}, err
	}
	target := account.TargetResource()

	local, err := s.subRepo.GetByUserID(ctx, userID)
	hasLocal := err == nil
	if err != nil && !errors.Is(err, recap_errors.ErrNotFound) {
		return subscription.View{}, err
	}
	if hasLocal && local.IsActive(s.now()) {
		s.observer.OnEvent(ctx, observe.SubscriptionFastPath, observe.Fields{
			"user_id":      userID.String(),
			"subscription": local.SubscriptionName,
		})
		return local.View(), nil
	}

	token, err := s.creds.GetValidCredential(ctx, userID)
	if err != nil {
		return subscription.View{}, err
	}

	if found, ok := s.discover(ctx, userID, token, target, s.discovery); ok {
		s.observer.OnEvent(ctx, observe.SubscriptionDiscovered, observe.Fields{
			"user_id":      userID.String(),
			"subscription": found.Name,
		})
		return s.mirror(ctx, userID, local, found)
	}

	created, err := s.create(ctx, userID, token, target)
	if err != nil {
		return subscription.View{}, err
	}
	return s.mirror(ctx, userID, local, created)
}

// create registers a new remote subscription, clearing one orphan on
// conflict and retrying once.
func (s *SubscriptionService) create(ctx context.Context, userID uuid.UUID, token, target string) (eventsapi.Subscription, error) {
	req := eventsapi.CreateRequest{
		TargetResource: target,
		EventTypes:     s.cfg.EventTypes,
		Topic:          s.cfg.Topic,
		TTL:            s.cfg.TTL,
	}

	created, err := s.createOnce(ctx, userID, token, target, req)
	if err == nil {
		return created, nil
	}
	if !eventsapi.IsConflict(err) {
		return eventsapi.Subscription{}, subscriptionError(err, "create subscription")
	}

	s.observer.OnEvent(ctx, observe.SubscriptionConflict, observe.Fields{
		"user_id": userID.String(),
		"target":  target,
		"error":   err.Error(),
	})

	if orphan, ok := s.discover(ctx, userID, token, target, []DiscoveryStrategy{BroadestDiscovery}); ok {
		if err := s.api.DeleteSubscription(ctx, token, orphan.Name); err != nil {
			return eventsapi.Subscription{}, subscriptionError(err, "delete orphaned subscription")
		}
		s.observer.OnEvent(ctx, observe.SubscriptionOrphanDeleted, observe.Fields{
			"user_id":      userID.String(),
			"subscription": orphan.Name,
		})
	}

	created, err = s.createOnce(ctx, userID, token, target, req)
	if err == nil {
		return created, nil
	}
	if eventsapi.IsConflict(err) {
		s.observer.OnEvent(ctx, observe.SubscriptionUnresolved, observe.Fields{
			"user_id": userID.String(),
			"target":  target,
		})
		return eventsapi.Subscription{}, recap_errors.New(recap_errors.CodeUnresolvedConflict,
			"a subscription for this account exists under another client; revoke the app's access in your Google account and reconnect", err)
	}
	return eventsapi.Subscription{}, subscriptionError(err, "create subscription")
}

// createOnce issues one create call. A pending operation is resolved by
// looking the subscription up again.
func (s *SubscriptionService) createOnce(ctx context.Context, userID uuid.UUID, token, target string, req eventsapi.CreateRequest) (eventsapi.Subscription, error) {
	created, err := s.api.CreateSubscription(ctx, token, req)
	if err == nil {
		s.observer.OnEvent(ctx, observe.SubscriptionCreated, observe.Fields{
			"user_id":      userID.String(),
			"subscription": created.Name,
		})
		return created, nil
	}
	if !errors.Is(err, eventsapi.ErrOperationPending) {
		return eventsapi.Subscription{}, err
	}
	if found, ok := s.discover(ctx, userID, token, target, s.discovery); ok {
		return found, nil
	}
	return eventsapi.Subscription{}, &recap_errors.Error{
		Code:      recap_errors.CodeUnknown,
		Retryable: true,
		Message:   "subscription creation is still pending",
		Err:       err,
	}
}

// mirror upserts the local row from a remote record.
func (s *SubscriptionService) mirror(ctx context.Context, userID uuid.UUID, local subscription.EventSubscription, remote eventsapi.Subscription) (subscription.View, error) {
	row := local
	row.UserID = userID
	row.SubscriptionName = remote.Name
	row.TargetResource = remote.TargetResource
	row.EventTypes = pq.StringArray(remote.EventTypes)
	if len(row.EventTypes) == 0 {
		row.EventTypes = pq.StringArray(s.cfg.EventTypes)
	}
	row.Status = subscription.StatusActive
	row.ExpireTime = s.expireTime(remote)
	row.RenewalFailures = 0
	row.LastError = sql.NullString{}

	if err := s.subRepo.Upsert(ctx, &row); err != nil {
		s.observer.OnEvent(ctx, observe.SubscriptionPersistFailed, observe.Fields{
			"user_id":      userID.String(),
			"subscription": remote.Name,
			"error":        err.Error(),
		})
		return subscription.View{}, err
	}
	return row.View(), nil
}

func (s *SubscriptionService) expireTime(remote eventsapi.Subscription) time.Time {
	if !remote.ExpireTime.IsZero() {
		return remote.ExpireTime.UTC()
	}
	return s.now().Add(s.cfg.TTL).UTC()
}

// Renew extends the user's subscription to the maximum lifetime.
func (s *SubscriptionService) Renew(ctx context.Context, userID uuid.UUID) (subscription.View, error) {
	local, err := s.subRepo.GetByUserID(ctx, userID)
	if errors.Is(err, recap_errors.ErrNotFound) {
		return subscription.View{}, recap_errors.New(recap_errors.CodeNoSubscription, "no subscription to renew", err)
	}
	if err != nil {
		return subscription.View{}, err
	}

	renewed, err := s.renewRemote(ctx, userID, local.SubscriptionName)
	if err != nil {
		return subscription.View{}, s.recordRenewFailure(ctx, local, err)
	}

	now := s.now()
	local.Status = subscription.StatusActive
	local.ExpireTime = s.expireTime(renewed)
	local.LastRenewedAt = sql.NullTime{Time: now, Valid: true}
	local.RenewalFailures = 0
	local.LastError = sql.NullString{}
	if err := s.subRepo.Update(ctx, local); err != nil {
		s.observer.OnEvent(ctx, observe.SubscriptionPersistFailed, observe.Fields{
			"user_id":      userID.String(),
			"subscription": local.SubscriptionName,
			"error":        err.Error(),
		})
		return subscription.View{}, err
	}

	s.observer.OnEvent(ctx, observe.SubscriptionRenewed, observe.Fields{
		"user_id":      userID.String(),
		"subscription": local.SubscriptionName,
		"expire_time":  local.ExpireTime,
	})
	return local.View(), nil
}

func (s *SubscriptionService) renewRemote(ctx context.Context, userID uuid.UUID, name string) (eventsapi.Subscription, error) {
	token, err := s.creds.GetValidCredential(ctx, userID)
	if err != nil {
		return eventsapi.Subscription{}, err
	}
	return s.api.RenewSubscription(ctx, token, name)
}

// recordRenewFailure bumps the failure counter and, when the remote side
// no longer knows the subscription, stops claiming it is active.
func (s *SubscriptionService) recordRenewFailure(ctx context.Context, local subscription.EventSubscription, cause error) error {
	local.RenewalFailures++
	local.LastError = sql.NullString{String: cause.Error(), Valid: true}

	gone := eventsapi.IsNotFound(cause)
	if gone {
		local.Status = subscription.StatusExpired
	}

	fields := observe.Fields{
		"user_id":      local.UserID.String(),
		"subscription": local.SubscriptionName,
		"failures":     local.RenewalFailures,
		"error":        cause.Error(),
	}
	if gone {
		s.observer.OnEvent(ctx, observe.SubscriptionExpired, fields)
	} else {
		fields["category"] = string(resilience.Classify(cause).Category)
		s.observer.OnEvent(ctx, observe.SubscriptionRenewFailed, fields)
	}

	if err := s.subRepo.Update(ctx, local); err != nil {
		s.observer.OnEvent(ctx, observe.SubscriptionPersistFailed, observe.Fields{
			"user_id":      local.UserID.String(),
			"subscription": local.SubscriptionName,
			"error":        err.Error(),
		})
	}

	if gone {
		return recap_errors.New(recap_errors.CodeSubscriptionExpired, "subscription no longer exists remotely", cause)
	}
	return subscriptionError(cause, "renew subscription")
}

// Get returns the local mirror row.
func (s *SubscriptionService) Get(ctx context.Context, userID uuid.UUID) (subscription.EventSubscription, error) {
	row, err := s.subRepo.GetByUserID(ctx, userID)
	if errors.Is(err, recap_errors.ErrNotFound) {
		return subscription.EventSubscription{}, recap_errors.New(recap_errors.CodeNoSubscription, "no subscription", err)
	}
	return row, err
}

func subscriptionError(err error, message string) error {
	var apiErr *eventsapi.APIError
	if errors.As(err, &apiErr) && apiErr.MissingScopes() {
		return recap_errors.New(recap_errors.CodeMissingScopes, "the connected account did not grant the required scopes", err)
	}
	return resilience.AsError(err, message)
}
