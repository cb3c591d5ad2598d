package eventsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// APIError is a non 2xx answer from the API, or a completed operation that
// carries an error.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("eventsapi: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("eventsapi: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// MissingScopes reports a permission failure caused by an OAuth grant that
// lacks the scopes the subscription needs.
func (e *APIError) MissingScopes() bool {
	if e.StatusCode != http.StatusForbidden {
		return false
	}
	return strings.Contains(strings.ToLower(e.Message), "scope")
}

type errorEnvelope struct {
	Error struct {
		Status string `json:"status"`
	} `json:"error"`
}

// fromGoogleAPI wraps a *googleapi.Error so callers see the HTTP status and
// the canonical status name. Other errors (transport, context) pass through.
func fromGoogleAPI(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	apiErr := &APIError{StatusCode: gerr.Code, Message: gerr.Message, Err: err}
	var env errorEnvelope
	if json.Unmarshal([]byte(gerr.Body), &env) == nil {
		apiErr.Status = env.Error.Status
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(gerr.Body)
	}
	return apiErr
}

func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusConflict || apiErr.Status == "ALREADY_EXISTS"
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Status == "NOT_FOUND"
}
