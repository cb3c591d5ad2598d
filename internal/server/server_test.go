package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recap-mail/config"
	"recap-mail/internal/domain/draft"
	"recap-mail/internal/domain/subscription"
	"recap-mail/internal/handler"
	"recap-mail/internal/redis"
	"recap-mail/internal/services"
	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
)

type stubAuth struct{ userID uuid.UUID }

func (a stubAuth) Authenticate(_ context.Context, token string) (uuid.UUID, error) {
	if token != "good" {
		return uuid.Nil, recap_errors.ErrUnauthorized
	}
	return a.userID, nil
}

type stubReconciler struct{}

func (stubReconciler) EnsureActiveSubscription(context.Context, uuid.UUID) (subscription.View, error) {
	return subscription.View{Name: "subscriptions/s1", State: "ACTIVE"}, nil
}

func (stubReconciler) Renew(context.Context, uuid.UUID) (subscription.View, error) {
	return subscription.View{}, recap_errors.New(recap_errors.CodeNoSubscription, "none", nil)
}

func (stubReconciler) Get(context.Context, uuid.UUID) (subscription.EventSubscription, error) {
	return subscription.EventSubscription{}, recap_errors.ErrNotFound
}

type stubGenerator struct{ calls int }

func (g *stubGenerator) GenerateDraft(context.Context, string, string, services.DraftContext) services.GenerateDraftResult {
	g.calls++
	return services.GenerateDraftResult{Success: true, Attempts: 1}
}

func (g *stubGenerator) ListDrafts(context.Context, uuid.UUID, string, int) ([]draft.EmailDraft, error) {
	return nil, nil
}

func (g *stubGenerator) GetDraft(context.Context, uuid.UUID) (draft.EmailDraft, error) {
	return draft.EmailDraft{}, recap_errors.ErrNotFound
}

type stubRouter struct{}

func (stubRouter) HandleEvent(context.Context, services.WorkspaceEvent) (uuid.UUID, error) {
	return uuid.Nil, recap_errors.ErrNotFound
}

type stubLimiter struct{ allowed bool }

func (l stubLimiter) AllowDraft(context.Context, string) (*redis.RateLimitResult, error) {
	return &redis.RateLimitResult{Allowed: l.allowed, Limit: 1}, nil
}

func newTestServer(limiter stubLimiter, gen *stubGenerator) *Server {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "recap_test_total"}).Inc()

	s := New(&config.Config{AppPort: "0", AppMode: TestMode}, nil).
		WithMetrics(reg).
		AddHealthCheck("database", func(context.Context) error { return nil })
	s.SetupRoutes(&Handlers{
		Subscription: handler.NewSubscriptionHandler(stubReconciler{}),
		Draft:        handler.NewDraftHandler(gen, nil),
		Webhook:      handler.NewWebhookHandler(stubRouter{}, ""),
	}, stubAuth{userID: uuid.New()}, limiter)
	return s
}

func serve(s *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestServer_PublicRoutes(t *testing.T) {
	s := newTestServer(stubLimiter{allowed: true}, &stubGenerator{})

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", "").Code)

	w := serve(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recap_test_total 1")
}

func TestServer_HealthReportsFailingDependency(t *testing.T) {
	s := newTestServer(stubLimiter{allowed: true}, &stubGenerator{})
	s.AddHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	w := serve(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestServer_RequiresBearer(t *testing.T) {
	s := newTestServer(stubLimiter{allowed: true}, &stubGenerator{})

	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodPost, "/v1/subscriptions/ensure", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodPost, "/v1/subscriptions/ensure", "bad").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodPost, "/v1/subscriptions/ensure", "good").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodPost, "/v1/subscriptions/renew", "good").Code)
}

func TestServer_WebhookSkipsBearer(t *testing.T) {
	s := newTestServer(stubLimiter{allowed: true}, &stubGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/events", nil)
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	// empty body is a malformed envelope, not an auth failure
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DraftRateLimited(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestServer(stubLimiter{allowed: false}, gen)

	req := httptest.NewRequest(http.MethodPost, "/v1/meetings/m1/drafts", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Zero(t, gen.calls)
}
