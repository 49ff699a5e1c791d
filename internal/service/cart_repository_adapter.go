package service

import (
	"context"
	"database/sql"

	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/store"
)

// CartRepositoryAdapter adapts a store.CartStore to the CartRepository
// interface, carrying the database handle the service needs to open
// transactions.
type CartRepositoryAdapter struct {
	cartStore store.CartStore
	db        *sql.DB
}

// NewCartRepositoryAdapter creates a new adapter that delegates to the
// provided CartStore.
func NewCartRepositoryAdapter(cartStore store.CartStore, db *sql.DB) *CartRepositoryAdapter {
	return &CartRepositoryAdapter{
		cartStore: cartStore,
		db:        db,
	}
}

// Create delegates to the underlying store
func (a *CartRepositoryAdapter) Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	return a.cartStore.Create(ctx, cart)
}

// Save delegates to the underlying store
func (a *CartRepositoryAdapter) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	return a.cartStore.Save(ctx, cart)
}

// GetByID delegates to the underlying store
func (a *CartRepositoryAdapter) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	return a.cartStore.GetByID(ctx, id)
}

// GetByIDForUpdate delegates to the underlying store
func (a *CartRepositoryAdapter) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Cart, error) {
	return a.cartStore.GetByIDForUpdate(ctx, id)
}

// WithTx returns a new adapter whose store operations run on the given
// transaction. The database handle is retained so nested transaction
// starts remain possible, though callers are expected not to nest.
func (a *CartRepositoryAdapter) WithTx(tx *sql.Tx) CartRepository {
	return &CartRepositoryAdapter{
		cartStore: a.cartStore.WithTx(tx),
		db:        a.db,
	}
}

// DB returns the underlying database connection
func (a *CartRepositoryAdapter) DB() *sql.DB {
	return a.db
}

// Ensure CartRepositoryAdapter implements CartRepository
var _ CartRepository = (*CartRepositoryAdapter)(nil)
