// Package completion wraps the remote text completion services behind a
// single Completer interface. Clients make exactly one attempt per call;
// retries belong to the caller.
package completion

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var ErrEmptyResponse = errors.New("completion: response has no text")

type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Model() string
}

// APIError is a non 2xx answer from a completion service.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s api error (%d %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s api error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New returns the Completer for cfg.Provider.
func New(ctx context.Context, cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("completion: unknown provider %q", cfg.Provider)
	}
}
