package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrNotFound",
			err:      ErrNotFound,
			expected: true,
		},
		{
			name:     "ErrCartNotFound",
			err:      ErrCartNotFound,
			expected: true,
		},
		{
			name:     "ErrJobNotFound",
			err:      ErrJobNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrCartNotFound",
			err:      fmt.Errorf("lookup failed: %w", ErrCartNotFound),
			expected: true,
		},
		{
			name:     "ErrDuplicate is not a not-found error",
			err:      ErrDuplicate,
			expected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNotFoundError(tc.err); got != tc.expected {
				t.Errorf("IsNotFoundError(%v) = %v, want %v", tc.err, got, tc.expected)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	underlying := errors.New("connection reset")
	err := NewStoreError("cart", "save", "exec failed", underlying)

	if !errors.Is(err, underlying) {
		t.Error("expected StoreError to unwrap to the underlying error")
	}

	want := "save operation on cart failed: exec failed: connection reset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewStoreError("cart", "create", "validation", nil)
	if bare.Unwrap() != nil {
		t.Error("expected nil Unwrap for error without cause")
	}
}
