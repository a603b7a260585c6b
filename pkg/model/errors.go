package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies API failures independently of HTTP status codes.
type ErrorCode string

const (
	ErrUnauthorized   ErrorCode = "unauthorized"
	ErrForbidden      ErrorCode = "forbidden"
	ErrRateLimited    ErrorCode = "rate_limited"
	ErrInvalidRequest ErrorCode = "invalid_request"
	ErrQuotaExceeded  ErrorCode = "quota_exceeded"
	ErrUpstream       ErrorCode = "upstream_error"
	// ErrAPIFailure covers responses where HTTP succeeded but the Mavi
	// envelope reported a non-success business code.
	ErrAPIFailure ErrorCode = "api_failure"
)

// APIError is a failure reported by the Mavi backend, either as an HTTP
// error status or as a non-success envelope code on an HTTP 200.
type APIError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	// APICode is the business code from the response envelope, when present.
	APICode   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.APICode != "" {
		return fmt.Sprintf("mavi: %s (status=%d code=%s): %s", e.Code, e.HTTPStatus, e.APICode, e.Message)
	}
	return fmt.Sprintf("mavi: %s (status=%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// ValidationError reports client-side misuse before any request is sent:
// empty API keys, missing files, empty queries.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "mavi: " + e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}
