package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"recap-mail/internal/domain/user"
	"recap-mail/internal/repository"
	"recap-mail/internal/resilience"
	recap_errors "recap-mail/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested when the user connects their Google account.
var GoogleScopes = []string{
	"openid",
	"email",
	"https://www.googleapis.com/auth/meetings.space.readonly",
}

func NewGoogleOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       GoogleScopes,
	}
}

// OAuthCredentialProvider returns a valid access token for a user's
// connected account, refreshing and re-sealing it when it has expired.
type OAuthCredentialProvider struct {
	userRepo repository.UserRepository
	oauth    *oauth2.Config
	cipher   *TokenCipher
	logger   *zap.Logger
}

func NewOAuthCredentialProvider(userRepo repository.UserRepository, oauth *oauth2.Config, cipher *TokenCipher, logger *zap.Logger) *OAuthCredentialProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthCredentialProvider{userRepo: userRepo, oauth: oauth, cipher: cipher, logger: logger}
}

func (p *OAuthCredentialProvider) GetValidCredential(ctx context.Context, userID uuid.UUID) (string, error) {
	account, err := p.userRepo.GetConnectedAccount(ctx, userID)
	if errors.Is(err, recap_errors.ErrNotFound) {
		return "", recap_errors.New(recap_errors.CodeNotConnected, "no connected account", err)
	}
	if err != nil {
		return "", err
	}

	current, err := p.open(account)
	if err != nil {
		return "", recap_errors.New(recap_errors.CodeAuthFailure, "stored credentials are unreadable", err)
	}
	if current.AccessToken == "" && current.RefreshToken == "" {
		return "", recap_errors.New(recap_errors.CodeNotConnected, "connected account has no credentials", nil)
	}

	fresh, err := p.oauth.TokenSource(ctx, current).Token()
	if err != nil {
		return "", credentialError(err)
	}

	if fresh.AccessToken != current.AccessToken {
		if err := p.store(ctx, account, fresh); err != nil {
			p.logger.Warn("failed to persist refreshed token",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
	return fresh.AccessToken, nil
}

func (p *OAuthCredentialProvider) open(a user.ConnectedAccount) (*oauth2.Token, error) {
	access, err := p.cipher.Open(a.AccessTokenSealed)
	if err != nil {
		return nil, err
	}
	refresh, err := p.cipher.Open(a.RefreshTokenSealed)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if a.TokenExpiry.Valid {
		tok.Expiry = a.TokenExpiry.Time
	} else if access == "" {
		// force a refresh
		tok.Expiry = time.Unix(1, 0)
	}
	return tok, nil
}

func (p *OAuthCredentialProvider) store(ctx context.Context, a user.ConnectedAccount, tok *oauth2.Token) error {
	access, err := p.cipher.Seal(tok.AccessToken)
	if err != nil {
		return err
	}
	a.AccessTokenSealed = access
	if tok.RefreshToken != "" {
		refresh, err := p.cipher.Seal(tok.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshTokenSealed = refresh
	}
	a.TokenExpiry = sql.NullTime{Time: tok.Expiry, Valid: !tok.Expiry.IsZero()}
	return p.userRepo.UpdateConnectedAccountTokens(ctx, a)
}

func credentialError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" || strings.Contains(string(re.Body), "invalid_grant") {
			return recap_errors.New(recap_errors.CodeAuthFailure, "refresh token was revoked; reconnect the account", err)
		}
		if re.Response != nil {
			return resilience.AsError(&statusError{status: re.Response.StatusCode, err: err}, "refresh credentials")
		}
	}
	return resilience.AsError(err, "refresh credentials")
}

type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) HTTPStatus() int { return e.status }
