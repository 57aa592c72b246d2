// Package http provides shared support for the outbound HTTP clients:
// a typed error taxonomy, structured logging, and secret redaction.
package http

import "fmt"

// ErrorType represents the category of error that occurred.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeRateLimit
	ErrTypeServiceUnavailable
	ErrTypeInvalidRequest
	ErrTypeTimeout
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication error"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeServiceUnavailable:
		return "service unavailable"
	case ErrTypeInvalidRequest:
		return "invalid request"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Error represents a failed call to an external API, wrapping the HTTP
// status and response body for diagnostics.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Provider   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type.String(), e.Message, e.StatusCode)
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsTimeout reports whether the error is a network timeout.
func (e *Error) IsTimeout() bool {
	return e.Type == ErrTypeTimeout
}

// NewTimeoutError creates an error for a request that exceeded its deadline.
func NewTimeoutError(provider, message string) *Error {
	return &Error{
		Type:     ErrTypeTimeout,
		Message:  message,
		Provider: provider,
	}
}

// NewStatusError maps a non-2xx response to a typed error, keeping the
// status code and (truncated) body for diagnostics.
func NewStatusError(provider string, statusCode int, body []byte) *Error {
	errType := ErrTypeUnknown
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrTypeAuthentication
	case statusCode == 429:
		errType = ErrTypeRateLimit
	case statusCode == 400:
		errType = ErrTypeInvalidRequest
	case statusCode >= 500:
		errType = ErrTypeServiceUnavailable
	}

	return &Error{
		Type:       errType,
		Message:    TruncateForLogging(string(body)),
		StatusCode: statusCode,
		Provider:   provider,
	}
}
