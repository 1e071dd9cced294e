package store

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

// ErrUnsupportedMethod is returned for verbs the record store does not accept.
var ErrUnsupportedMethod = errors.New("store: unsupported method")

// Error is a non-2xx answer from the record store.
type Error struct {
	Method     string
	Resource   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %s returned %d: %s", e.Method, e.Resource, e.StatusCode, e.Body)
}

// TimeoutError reports a request that exceeded its deadline.
type TimeoutError struct {
	Method   string
	Resource string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("store: %s %s timed out: %v", e.Method, e.Resource, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// UnavailableError reports a connection-level failure.
type UnavailableError struct {
	Method   string
	Resource string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store: %s %s unavailable: %v", e.Method, e.Resource, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsRetryable reports whether a caller may reasonably retry the failed call.
// Timeouts, connection failures and 5xx answers qualify; 4xx answers never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var unavailableErr *UnavailableError
	if errors.As(err, &unavailableErr) {
		return true
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// IsConflict reports a unique constraint violation answer.
func IsConflict(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.StatusCode == http.StatusConflict
}

// Translate maps a store failure onto an application error. Timeouts and
// connection failures keep their own kinds; everything else becomes internal.
func Translate(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *errorbank.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return errorbank.Timeout(message, errorbank.WithCause(err))
	}
	var unavailableErr *UnavailableError
	if errors.As(err, &unavailableErr) {
		return errorbank.Unavailable(message, errorbank.WithCause(err))
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return errorbank.Internal(message, errorbank.WithCause(err), errorbank.WithDetail("store_status", storeErr.StatusCode))
	}
	return errorbank.Internal(message, errorbank.WithCause(err))
}
