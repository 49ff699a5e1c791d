package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/service"
	"github.com/jmolloy/cartminder/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "cart not found", err: service.ErrCartNotFound, want: http.StatusNotFound},
		{name: "store not found", err: store.ErrNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", service.ErrCartNotFound), want: http.StatusNotFound},
		{name: "cart closed", err: domain.ErrCartClosed, want: http.StatusConflict},
		{name: "reminder already sent", err: domain.ErrReminderAlreadySent, want: http.StatusConflict},
		{name: "duplicate", err: store.ErrDuplicate, want: http.StatusConflict},
		{name: "empty email", err: domain.ErrEmptyCartEmail, want: http.StatusBadRequest},
		{name: "invalid product", err: domain.ErrInvalidProductID, want: http.StatusBadRequest},
		{name: "invalid quantity", err: domain.ErrInvalidQuantity, want: http.StatusBadRequest},
		{name: "invalid step", err: domain.ErrInvalidReminderStep, want: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("disk full"), want: http.StatusInternalServerError},
		{
			name: "service wrapper preserves the cause",
			err:  service.NewCartServiceError("add_item", "cart mutation rejected", domain.ErrCartClosed),
			want: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "An unexpected error occurred"},
		{name: "cart not found", err: service.ErrCartNotFound, want: "Cart not found"},
		{name: "cart closed", err: domain.ErrCartClosed, want: "Cart is closed"},
		{name: "reminder already sent", err: domain.ErrReminderAlreadySent, want: "Reminder already sent"},
		{name: "empty email", err: domain.ErrEmptyCartEmail, want: "A valid email address is required"},
		{name: "invalid product", err: domain.ErrInvalidProductID, want: "Product ID must be a positive integer"},
		{name: "invalid quantity", err: domain.ErrInvalidQuantity, want: "Quantity must be at least 1"},
		{
			name: "internal details stay hidden",
			err:  errors.New("pq: password authentication failed for user postgres"),
			want: "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}
