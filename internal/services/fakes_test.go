package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"recap-mail/internal/completion"
	"recap-mail/internal/domain/draft"
	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/domain/user"
	"recap-mail/internal/eventsapi"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/events"

	"github.com/google/uuid"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]user.User
	accounts map[uuid.UUID]user.ConnectedAccount
	updates  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]user.User{}, accounts: map[uuid.UUID]user.ConnectedAccount{}}
}

func (f *fakeUserRepo) connect(userID uuid.UUID, externalID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[userID] = user.User{ID: userID, IsActive: true}
	f.accounts[userID] = user.ConnectedAccount{ID: uuid.New(), UserID: userID, ExternalID: externalID}
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, recap_errors.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByExternalID(_ context.Context, externalID string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, a := range f.accounts {
		if a.ExternalID == externalID {
			return f.users[uid], nil
		}
	}
	return user.User{}, recap_errors.ErrNotFound
}

func (f *fakeUserRepo) GetConnectedAccount(_ context.Context, userID uuid.UUID) (user.ConnectedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[userID]
	if !ok {
		return user.ConnectedAccount{}, recap_errors.ErrNotFound
	}
	return a, nil
}

func (f *fakeUserRepo) UpdateConnectedAccountTokens(_ context.Context, a user.ConnectedAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[a.UserID] = a
	f.updates++
	return nil
}

type fakeSubRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]subscription.EventSubscription
	upserts int
	updates int
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{rows: map[uuid.UUID]subscription.EventSubscription{}}
}

func (f *fakeSubRepo) GetByUserID(_ context.Context, userID uuid.UUID) (subscription.EventSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return subscription.EventSubscription{}, recap_errors.ErrNotFound
	}
	return row, nil
}

func (f *fakeSubRepo) GetByName(_ context.Context, name string) (subscription.EventSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.SubscriptionName == name {
			return row, nil
		}
	}
	return subscription.EventSubscription{}, recap_errors.ErrNotFound
}

func (f *fakeSubRepo) Upsert(_ context.Context, s *subscription.EventSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.rows[s.UserID] = *s
	f.upserts++
	return nil
}

func (f *fakeSubRepo) Update(_ context.Context, s subscription.EventSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[s.UserID]; !ok {
		return recap_errors.ErrNotFound
	}
	f.rows[s.UserID] = s
	f.updates++
	return nil
}

type fakeCreds struct {
	token string
	err   error
	calls int
}

func (f *fakeCreds) GetValidCredential(context.Context, uuid.UUID) (string, error) {
	f.calls++
	return f.token, f.err
}

type createResult struct {
	sub eventsapi.Subscription
	err error
}

// fakeEventAPI replays scripted create results in order.
type fakeEventAPI struct {
	mu        sync.Mutex
	creates   []createResult
	list      func(filter string, pageSize int) ([]eventsapi.Subscription, error)
	renew     func(name string) (eventsapi.Subscription, error)
	deleteErr error

	createCalls int
	filters     []string
	renewCalls  int
	deleted     []string
}

func (f *fakeEventAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls + len(f.filters) + f.renewCalls + len(f.deleted)
}

func (f *fakeEventAPI) CreateSubscription(_ context.Context, token string, req eventsapi.CreateRequest) (eventsapi.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if len(f.creates) == 0 {
		return eventsapi.Subscription{}, &eventsapi.APIError{StatusCode: 500, Message: "unscripted create"}
	}
	r := f.creates[0]
	f.creates = f.creates[1:]
	return r.sub, r.err
}

func (f *fakeEventAPI) ListSubscriptions(_ context.Context, token, filter string, pageSize int) ([]eventsapi.Subscription, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	list := f.list
	f.mu.Unlock()
	if list == nil {
		return nil, nil
	}
	return list(filter, pageSize)
}

func (f *fakeEventAPI) RenewSubscription(_ context.Context, token, name string) (eventsapi.Subscription, error) {
	f.mu.Lock()
	f.renewCalls++
	renew := f.renew
	f.mu.Unlock()
	return renew(name)
}

func (f *fakeEventAPI) DeleteSubscription(_ context.Context, token, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return f.deleteErr
}

func isBroadestFilter(filter string) bool {
	return strings.Contains(filter, " OR ")
}

type fakeDraftRepo struct {
	mu        sync.Mutex
	rows      []draft.EmailDraft
	insertErr error
}

// Insert refuses a finished context the way gorm's WithContext does.
func (f *fakeDraftRepo) Insert(ctx context.Context, d *draft.EmailDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, *d)
	return nil
}

func (f *fakeDraftRepo) GetByID(_ context.Context, id uuid.UUID) (draft.EmailDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return draft.EmailDraft{}, recap_errors.ErrNotFound
}

func (f *fakeDraftRepo) ListByMeeting(_ context.Context, userID uuid.UUID, meetingID string, limit int) ([]draft.EmailDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []draft.EmailDraft
	for _, r := range f.rows {
		if r.MeetingID == meetingID && r.UserID.Valid && r.UserID.UUID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDraftRepo) all() []draft.EmailDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]draft.EmailDraft, len(f.rows))
	copy(out, f.rows)
	return out
}

// scriptedCompleter returns responses in order, repeating the last one.
type scriptedCompleter struct {
	mu      sync.Mutex
	steps   []func(ctx context.Context) (completion.Response, error)
	calls   int
	prompts []string
}

func (c *scriptedCompleter) Model() string { return "claude-sonnet-4-20250514" }

func (c *scriptedCompleter) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	c.mu.Lock()
	c.calls++
	c.prompts = append(c.prompts, req.Prompt)
	i := c.calls - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	step := c.steps[i]
	c.mu.Unlock()
	return step(ctx)
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func fails(err error) func(context.Context) (completion.Response, error) {
	return func(context.Context) (completion.Response, error) { return completion.Response{}, err }
}

func answers(text string, in, out int) func(context.Context) (completion.Response, error) {
	return func(context.Context) (completion.Response, error) {
		return completion.Response{Text: text, Model: "claude-sonnet-4-20250514", InputTokens: in, OutputTokens: out}, nil
	}
}

func blocks() func(context.Context) (completion.Response, error) {
	return func(ctx context.Context) (completion.Response, error) {
		<-ctx.Done()
		return completion.Response{}, ctx.Err()
	}
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchiver) PutJSON(ctx context.Context, key string, v interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	events   []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, e)
	return nil
}

// instantTimer fires immediately and records requested delays.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }
