package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/trackify-app/trackify/internal/domain/session"
)

// ErrBackendUnreachable is returned when the backend cannot be contacted.
var ErrBackendUnreachable = errors.New("backend unreachable")

// APIError is returned for every non-2xx response.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Route is the request route template, e.g. "GET /admin/user/:id".
	Route string
	// Message is the backend's own explanation, taken from a JSON
	// "message" field or from a plain-text body.
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s returned %d: %s", e.Route, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s returned %d", e.Route, e.Status)
}

// Is reports whether this error matches the target error.
// A 401 matches session.ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == session.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// UnreachableError wraps transport-level failures (DNS, refused
// connections, TLS, timeouts).
type UnreachableError struct {
	// Cause is the underlying error from the HTTP client.
	Cause error
}

// Error returns a human-readable description of the failure.
func (e *UnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend unreachable: %v", e.Cause)
	}
	return "backend unreachable"
}

// Unwrap returns the underlying error cause.
func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrBackendUnreachable).
func (e *UnreachableError) Is(target error) bool {
	return target == ErrBackendUnreachable
}

// BackendMessage returns the backend's own explanation, possibly empty.
func (e *APIError) BackendMessage() string {
	return e.Message
}
