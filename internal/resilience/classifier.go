// Package resilience holds the failure classifier and backoff policy shared by
// the subscription reconciler and the draft generator.
package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	recap_errors "recap-mail/pkg/errors"
)

// Category is the failure family of a caught error.
type Category string

const (
	CategoryAuth        Category = "auth"
	CategoryValidation  Category = "validation"
	CategoryRateLimit   Category = "rate_limit"
	CategoryTimeout     Category = "timeout"
	CategoryServerError Category = "server_error"
	CategoryOverloaded  Category = "overloaded"
	CategoryNetwork     Category = "network"
	CategoryUnknown     Category = "unknown"
)

// Verdict is the classifier output.
type Verdict struct {
	Retryable bool
	Category  Category
	Status    int
}

// Code maps the category onto the outward facing taxonomy.
func (c Category) Code() recap_errors.Code {
	switch c {
	case CategoryAuth:
		return recap_errors.CodeAuthFailure
	case CategoryValidation:
		return recap_errors.CodeValidationFailure
	case CategoryRateLimit:
		return recap_errors.CodeRateLimited
	case CategoryTimeout:
		return recap_errors.CodeTimeout
	case CategoryServerError:
		return recap_errors.CodeUpstreamServerError
	case CategoryOverloaded:
		return recap_errors.CodeOverloaded
	case CategoryNetwork:
		return recap_errors.CodeNetworkFailure
	default:
		return recap_errors.CodeUnknown
	}
}

// StatusOverloaded is the non standard status some completion services use
// when they shed load.
const StatusOverloaded = 529

// Classify decides whether err is worth another attempt. Auth and validation
// failures are never retryable; anything unrecognised is.
func Classify(err error) Verdict {
	if err == nil {
		return Verdict{Category: CategoryUnknown}
	}

	var sc recap_errors.StatusCoder
	if errors.As(err, &sc) {
		if v, ok := classifyStatus(sc.HTTPStatus(), strings.ToLower(err.Error())); ok {
			return v
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return verdict(CategoryTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return verdict(CategoryTimeout)
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return verdict(CategoryNetwork)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return verdict(CategoryNetwork)
	}

	return classifyMessage(strings.ToLower(err.Error()))
}

func verdict(c Category) Verdict {
	switch c {
	case CategoryAuth, CategoryValidation:
		return Verdict{Retryable: false, Category: c}
	default:
		return Verdict{Retryable: true, Category: c}
	}
}

func classifyStatus(status int, msg string) (Verdict, bool) {
	var v Verdict
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		v = verdict(CategoryAuth)
	case status == http.StatusTooManyRequests:
		v = verdict(CategoryRateLimit)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		v = verdict(CategoryTimeout)
	case status == StatusOverloaded:
		v = verdict(CategoryOverloaded)
	case status == http.StatusServiceUnavailable && strings.Contains(msg, "overloaded"):
		v = verdict(CategoryOverloaded)
	case status >= 500:
		v = verdict(CategoryServerError)
	case status >= 400:
		v = verdict(CategoryValidation)
	default:
		return Verdict{}, false
	}
	v.Status = status
	return v, true
}

// classifyMessage is the last resort for errors that carry no status.
func classifyMessage(s string) Verdict {
	switch {
	case containsAny(s, "invalid api key", "invalid x-api-key", "authentication_error",
		"unauthorized", "invalid_grant", "invalid credentials", "permission_error"):
		return verdict(CategoryAuth)
	case containsAny(s, "invalid_request", "bad request", "validation"):
		return verdict(CategoryValidation)
	case containsAny(s, "rate limit", "rate_limit", "too many requests", "429"):
		return verdict(CategoryRateLimit)
	case containsAny(s, "overloaded"):
		return verdict(CategoryOverloaded)
	case containsAny(s, "timeout", "timed out", "deadline exceeded"):
		return verdict(CategoryTimeout)
	case containsAny(s, "connection reset", "connection refused", "no such host",
		"broken pipe", "econnreset", "network"):
		return verdict(CategoryNetwork)
	case containsAny(s, "internal server error", "bad gateway", "service unavailable",
		"500", "502", "503"):
		return verdict(CategoryServerError)
	}
	return verdict(CategoryUnknown)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// AsError wraps err into the outward facing taxonomy using its verdict.
func AsError(err error, message string) *recap_errors.Error {
	var classified *recap_errors.Error
	if errors.As(err, &classified) {
		return classified
	}
	v := Classify(err)
	return &recap_errors.Error{
		Code:      v.Category.Code(),
		Retryable: v.Retryable,
		Status:    v.Status,
		Message:   message,
		Err:       err,
	}
}
