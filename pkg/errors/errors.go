package recap_errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Code is the outward facing failure taxonomy shared by the subscription and draft flows.
type Code string

const (
	CodeNotConnected        Code = "NOT_CONNECTED"
	CodeAuthFailure         Code = "AUTH_FAILURE"
	CodeMissingScopes       Code = "MISSING_SCOPES"
	CodeValidationFailure   Code = "VALIDATION_FAILURE"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeTimeout             Code = "TIMEOUT"
	CodeUpstreamServerError Code = "UPSTREAM_SERVER_ERROR"
	CodeOverloaded          Code = "OVERLOADED"
	CodeNetworkFailure      Code = "NETWORK_FAILURE"
	CodeUnresolvedConflict  Code = "UNRESOLVED_CONFLICT"
	CodeNoSubscription      Code = "NO_SUBSCRIPTION"
	CodeSubscriptionExpired Code = "SUBSCRIPTION_EXPIRED"
	CodeEmptyTranscript     Code = "EMPTY_TRANSCRIPT"
	CodePromptFailure       Code = "PROMPT_FAILURE"
	CodeUnknown             Code = "UNKNOWN"
)

// Error is a classified failure. Status carries the upstream HTTP status when
// one was observed, zero otherwise.
type Error struct {
	Code      Code
	Retryable bool
	Status    int
	Message   string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a non-retryable classified error.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// StatusCoder is implemented by remote API errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// CodeOf returns the taxonomy code of err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeAuthFailure
	case errors.Is(err, ErrInvalidInput):
		return CodeValidationFailure
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	}
	return CodeUnknown
}

// HTTPStatus maps err to the status code returned by the inbound endpoints.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return codeStatus(e)
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeStatus(e *Error) int {
	switch e.Code {
	case CodeNotConnected, CodeValidationFailure:
		return http.StatusBadRequest
	case CodeAuthFailure:
		return http.StatusUnauthorized
	case CodeMissingScopes:
		return http.StatusForbidden
	case CodeNoSubscription:
		return http.StatusNotFound
	case CodeSubscriptionExpired:
		return http.StatusGone
	case CodeUnresolvedConflict:
		return http.StatusConflict
	case CodeEmptyTranscript:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeOverloaded:
		return http.StatusServiceUnavailable
	case CodeNetworkFailure:
		return http.StatusBadGateway
	case CodeUpstreamServerError:
		if e.Status >= 500 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
