package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestQuicErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *QuicError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewError(CodeValidation, "screen ID required", nil),
			expected: "[VALIDATION] screen ID required",
		},
		{
			name:     "with cause",
			err:      NewError(CodeStore, "put failed", ErrStoreClosed),
			expected: "[STORE] put failed: screen store is closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestQuicErrorUnwrap(t *testing.T) {
	err := NewError(CodeStore, "put failed", ErrStoreClosed)

	if !errors.Is(err, ErrStoreClosed) {
		t.Error("expected errors.Is to match wrapped sentinel")
	}

	var qe *QuicError
	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.As(wrapped, &qe) {
		t.Fatal("expected errors.As to find QuicError in chain")
	}
	if qe.Code != CodeStore {
		t.Errorf("Code = %s, want %s", qe.Code, CodeStore)
	}
}

func TestWithContext(t *testing.T) {
	err := NewError(CodeNotFound, "record missing", nil)
	err = WithContext(err, "screen_id", "home")
	err = WithContext(err, "local_id", int64(42))

	if err.Context["screen_id"] != "home" {
		t.Errorf("Context[screen_id] = %v, want home", err.Context["screen_id"])
	}
	if err.Context["local_id"] != int64(42) {
		t.Errorf("Context[local_id] = %v, want 42", err.Context["local_id"])
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"network sentinel", ErrNetwork, true},
		{"queued offline sentinel", ErrQueuedOffline, true},
		{"wrapped network", fmt.Errorf("push: %w", ErrNetwork), true},
		{"network code", NewError(CodeNetwork, "timeout", nil), true},
		{"offline code", NewError(CodeOffline, "queued", nil), true},
		{"validation", NewError(CodeValidation, "bad payload", nil), false},
		{"conflict", ErrRemoteConflict, false},
		{"not found", ErrRecordNotFound, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
