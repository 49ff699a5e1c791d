package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmolloy/cartminder/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantIs   error
		original bool
	}{
		{
			name: "nil passes through",
			err:  nil,
		},
		{
			name:   "no rows maps to not found",
			err:    sql.ErrNoRows,
			wantIs: store.ErrNotFound,
		},
		{
			name:   "wrapped no rows maps to not found",
			err:    fmt.Errorf("query failed: %w", sql.ErrNoRows),
			wantIs: store.ErrNotFound,
		},
		{
			name:   "unique violation maps to duplicate",
			err:    &pgconn.PgError{Code: "23505", ConstraintName: "cart_items_cart_id_product_id_key"},
			wantIs: store.ErrDuplicate,
		},
		{
			name:   "foreign key violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23503", ConstraintName: "cart_items_cart_id_fkey"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "check violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23514", ConstraintName: "cart_items_quantity_check"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:   "not null violation maps to invalid entity",
			err:    &pgconn.PgError{Code: "23502", ColumnName: "email"},
			wantIs: store.ErrInvalidEntity,
		},
		{
			name:     "unrelated errors pass through unchanged",
			err:      errors.New("connection refused"),
			original: true,
		},
		{
			name:     "unmapped pg error codes pass through unchanged",
			err:      &pgconn.PgError{Code: "57014"},
			original: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapped := MapError(tc.err)

			if tc.err == nil {
				assert.NoError(t, mapped)
				return
			}
			if tc.original {
				assert.Equal(t, tc.err, mapped)
				return
			}
			require.Error(t, mapped)
			assert.ErrorIs(t, mapped, tc.wantIs)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrCartNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("load: %w", store.ErrNotFound)))
	assert.False(t, IsNotFoundError(errors.New("other")))
}
