package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recap-mail/internal/redis"
	"recap-mail/internal/services"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"caller id kept", map[string]string{"X-Request-Id": "abc-123"}, "abc-123"},
		{"cloud trace used", map[string]string{"X-Cloud-Trace-Context": "105445aa7843bc8bf206b12000100000/1;o=1"}, "105445aa7843bc8bf206b12000100000"},
		{"control characters replaced", map[string]string{"X-Request-Id": "bad\nid"}, ""},
		{"oversized replaced", map[string]string{"X-Request-Id": strings.Repeat("a", 200)}, ""},
		{"generated", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			r := gin.New()
			r.Use(RequestIDMiddleware())
			r.GET("/", func(c *gin.Context) {
				seen = logger.RequestID(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, seen, w.Header().Get("X-Request-Id"))
			if tt.want != "" {
				assert.Equal(t, tt.want, seen)
			} else {
				assert.Len(t, seen, 32)
			}
		})
	}
}

type authFunc func(ctx context.Context, token string) (uuid.UUID, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	return f(ctx, token)
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	auth := authFunc(func(_ context.Context, token string) (uuid.UUID, error) {
		if token == "ok" {
			return userID, nil
		}
		return uuid.Nil, recap_errors.ErrUnauthorized
	})

	var got uuid.UUID
	r := gin.New()
	r.Use(AuthMiddleware(auth))
	r.GET("/", func(c *gin.Context) {
		got, _ = services.UserIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic ok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(recap_errors.CodeAuthFailure))
}

type limiterFunc func(ctx context.Context, userID string) (*redis.RateLimitResult, error)

func (f limiterFunc) AllowDraft(ctx context.Context, userID string) (*redis.RateLimitResult, error) {
	return f(ctx, userID)
}

func TestDraftRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter := limiterFunc(func(context.Context, string) (*redis.RateLimitResult, error) {
		return nil, assert.AnError
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(services.WithUserContext(c.Request.Context(), uuid.New()))
	}, DraftRateLimitMiddleware(limiter))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandler_RendersTaxonomy(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(nil))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(recap_errors.New(recap_errors.CodeMissingScopes, "scopes", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(recap_errors.CodeMissingScopes))
}
