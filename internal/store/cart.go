package store

import (
	"context"
	"database/sql"

	"github.com/jmolloy/cartminder/internal/domain"
)

// CartStore defines the interface for cart data persistence.
type CartStore interface {
	// Create saves a new cart and its items, assigning the persistence ID.
	// The returned cart carries the assigned ID; the input is not mutated.
	// Returns validation errors if the cart data is invalid.
	Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)

	// Save persists all mutable state of an existing cart: items,
	// reminder timestamps, clicked/finalized markers, updated_at.
	// Item lines are upserted per (cart_id, product_id).
	// Returns ErrCartNotFound if the cart does not exist.
	//
	// Save by itself provides no mutual exclusion. Callers doing a
	// read-modify-write must wrap GetByIDForUpdate and Save in a single
	// transaction via RunInTransaction, so concurrent mutations of the
	// same cart serialize on the row lock.
	Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)

	// GetByID retrieves a cart and its items by ID.
	// Returns ErrCartNotFound if the cart does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)

	// GetByIDForUpdate retrieves a cart while taking a row-level lock on
	// it. Only meaningful inside a transaction; the lock is held until
	// the transaction ends.
	// Returns ErrCartNotFound if the cart does not exist.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Cart, error)

	// WithTx returns a new CartStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically through RunInTransaction.
	WithTx(tx *sql.Tx) CartStore
}
