package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testCipher(t *testing.T) *TokenCipher {
	t.Helper()
	c, err := NewTokenCipher(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))
	require.NoError(t, err)
	return c
}

func TestTokenCipherRoundTrip(t *testing.T) {
	c := testCipher(t)

	sealed, err := c.Seal("ya29.secret")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "ya29.secret")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.secret", plain)

	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Open(sealed)
	assert.Error(t, err)
}

func TestNewTokenCipherRejectsShortKey(t *testing.T) {
	_, err := NewTokenCipher(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func seedAccount(t *testing.T, users *fakeUserRepo, c *TokenCipher, userID uuid.UUID, access, refresh string, expiry time.Time) {
	t.Helper()
	users.connect(userID, "1001")
	a := users.accounts[userID]
	var err error
	a.AccessTokenSealed, err = c.Seal(access)
	require.NoError(t, err)
	a.RefreshTokenSealed, err = c.Seal(refresh)
	require.NoError(t, err)
	a.TokenExpiry = sql.NullTime{Time: expiry, Valid: true}
	users.accounts[userID] = a
}

func TestGetValidCredential_ValidTokenIsReturned(t *testing.T) {
	users := newFakeUserRepo()
	c := testCipher(t)
	userID := uuid.New()
	seedAccount(t, users, c, userID, "live-token", "refresh", time.Now().Add(time.Hour))

	p := NewOAuthCredentialProvider(users, &oauth2.Config{}, c, nil)
	token, err := p.GetValidCredential(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "live-token", token)
	assert.Zero(t, users.updates)
}

func TestGetValidCredential_RefreshesAndReseals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"new-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	users := newFakeUserRepo()
	c := testCipher(t)
	userID := uuid.New()
	seedAccount(t, users, c, userID, "old-token", "refresh", time.Now().Add(-time.Hour))

	p := NewOAuthCredentialProvider(users, &oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, c, nil)
	token, err := p.GetValidCredential(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
	assert.Equal(t, 1, users.updates)

	stored, err := c.Open(users.accounts[userID].AccessTokenSealed)
	require.NoError(t, err)
	assert.Equal(t, "new-token", stored)
	refresh, err := c.Open(users.accounts[userID].RefreshTokenSealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh)
}

func TestGetValidCredential_RevokedGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	}))
	defer srv.Close()

	users := newFakeUserRepo()
	c := testCipher(t)
	userID := uuid.New()
	seedAccount(t, users, c, userID, "old-token", "refresh", time.Now().Add(-time.Hour))

	p := NewOAuthCredentialProvider(users, &oauth2.Config{
		Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, c, nil)
	_, err := p.GetValidCredential(context.Background(), userID)

	assert.Equal(t, recap_errors.CodeAuthFailure, recap_errors.CodeOf(err))
}

func TestGetValidCredential_NotConnected(t *testing.T) {
	p := NewOAuthCredentialProvider(newFakeUserRepo(), &oauth2.Config{}, testCipher(t), nil)
	_, err := p.GetValidCredential(context.Background(), uuid.New())
	assert.Equal(t, recap_errors.CodeNotConnected, recap_errors.CodeOf(err))
}
