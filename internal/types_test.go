// internal/types_test.go - Unit tests for application errors
package internal

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrorCodeNetwork, "fetching document", cause)

	if err.Error() != "fetching document: connection refused" {
		t.Errorf("Expected message with cause, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}

	bare := NewError(ErrorCodeValidation, "bad index", nil)
	if bare.Error() != "bad index" {
		t.Errorf("Expected bare message, got %q", bare.Error())
	}
}

func TestErrorCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", NewError(ErrorCodeNotFound, "missing", nil))

	if got := ErrorCodeOf(wrapped); got != ErrorCodeNotFound {
		t.Errorf("Expected %s, got %s", ErrorCodeNotFound, got)
	}
	if got := ErrorCodeOf(errors.New("plain")); got != "" {
		t.Errorf("Expected empty code, got %s", got)
	}
}

func TestDecodeStatsDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := DecodeStats{StartTime: start, EndTime: start.Add(3 * time.Second)}

	if stats.Duration() != 3*time.Second {
		t.Errorf("Expected 3s, got %v", stats.Duration())
	}
}
