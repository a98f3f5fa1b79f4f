package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrVersionConflict, "parameter changed concurrently").
		WithCause(root).
		WithHTTPStatus(http.StatusConflict).
		WithRetryable(true)

	if GetErrorCode(err) != ErrVersionConflict {
		t.Fatalf("expected code %s, got %s", ErrVersionConflict, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_Constructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		code   ErrorCode
		status int
	}{
		{"unauthorized", NewUnauthorizedError("no caller"), ErrUnauthorized, http.StatusUnauthorized},
		{"not found", NewNotFoundError("strategy", "s-1"), ErrNotFound, http.StatusNotFound},
		{"validation", NewValidationError("score is required"), ErrInvalidRequest, http.StatusBadRequest},
		{"conflict", NewVersionConflictError("retry later"), ErrVersionConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
		})
	}
}

func TestWrapError_PreservesStructuredErrors(t *testing.T) {
	t.Parallel()

	inner := NewNotFoundError("parameter", "temperature")
	wrapped := fmt.Errorf("load catalog: %w", inner)

	got := WrapError(wrapped, ErrInternalError, "unexpected")
	if got.Code != ErrNotFound {
		t.Fatalf("expected wrapped NOT_FOUND to survive, got %s", got.Code)
	}
	if !IsErrorCode(wrapped, ErrNotFound) {
		t.Fatalf("expected IsErrorCode to see through fmt wrapping")
	}

	plain := WrapError(errors.New("disk full"), ErrInternalError, "persist failed")
	if plain.Code != ErrInternalError || plain.Cause == nil {
		t.Fatalf("expected internal error with cause, got %+v", plain)
	}
	if WrapError(nil, ErrInternalError, "x") != nil {
		t.Fatalf("expected nil for nil error")
	}
}
