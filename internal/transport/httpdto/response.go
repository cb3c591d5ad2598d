package httpdto

import (
	"errors"

	recap_errors "recap-mail/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// NewErrorResponseFrom renders err with its taxonomy code. A classified
// error shows its message rather than the wrapped cause.
func NewErrorResponseFrom(err error) Response[any] {
	return NewErrorResponse(ErrorMessage(err), string(recap_errors.CodeOf(err)))
}

func ErrorMessage(err error) string {
	var e *recap_errors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
