// Package errors provides domain-specific errors for the quicui core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrNotInitialized    = errors.New("data source not initialized")
	ErrStoreClosed       = errors.New("screen store is closed")
	ErrDuplicateScreenID = errors.New("screen ID already exists")
	ErrRecordNotFound    = errors.New("screen record not found")
	ErrScreenNotFound    = errors.New("screen not found in flow")
	ErrFlowNotRegistered = errors.New("flow has no registered resource locator")
	ErrFlowHasNoScreens  = errors.New("flow defines no screens")
	ErrInvalidDefinition = errors.New("definition must contain a type or screens key")
	ErrPermissionDenied  = errors.New("permission denied by remote")
	ErrNetwork           = errors.New("network error")
	ErrRemoteConflict    = errors.New("remote version conflicts with update")
	ErrQueuedOffline     = errors.New("change queued for later delivery")
	ErrVersionChanged    = errors.New("record version changed during sync")
	ErrNoConflict        = errors.New("record has no conflict to resolve")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeNetwork    ErrorCode = "NETWORK"
	CodeConflict   ErrorCode = "CONFLICT"
	CodeStore      ErrorCode = "STORE"
	CodeOffline    ErrorCode = "OFFLINE"
)

// QuicError wraps errors with a code and context for debugging and handling.
type QuicError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *QuicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *QuicError) Unwrap() error {
	return e.Cause
}

// NewError creates a new QuicError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *QuicError {
	return &QuicError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
// This allows for method chaining when adding multiple context values.
func WithContext(err *QuicError, key string, value any) *QuicError {
	if err.Context == nil {
		err.Context = make(map[string]any)
	}
	err.Context[key] = value
	return err
}

// IsRetryable reports whether err represents a transient condition that the
// sync orchestrator may retry. Validation, lifecycle, and conflict errors are
// never retried; network failures and offline-queued writes are.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrQueuedOffline) {
		return true
	}
	var qe *QuicError
	if errors.As(err, &qe) {
		return qe.Code == CodeNetwork || qe.Code == CodeOffline
	}
	return false
}

// Is reports whether err matches target using errors.Is semantics.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
func As(err error, target any) bool {
	return errors.As(err, target)
}
