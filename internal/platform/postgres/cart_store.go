package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/store"
)

// PostgresCartStore implements the store.CartStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCartStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCartStore creates a new PostgreSQL implementation of the CartStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCartStore(db store.DBTX, logger *slog.Logger) *PostgresCartStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCartStore{
		db:     db,
		logger: logger.With(slog.String("component", "cart_store")),
	}
}

// Ensure PostgresCartStore implements store.CartStore interface
var _ store.CartStore = (*PostgresCartStore)(nil)

// WithTx implements store.CartStore.WithTx
func (s *PostgresCartStore) WithTx(tx *sql.Tx) store.CartStore {
	return &PostgresCartStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CartStore.Create
func (s *PostgresCartStore) Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO carts (user_id, email,
			first_reminder_sent_at, second_reminder_sent_at, third_reminder_sent_at,
			email_clicked_at, finalized_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	first, second, third := reminderColumns(cart)

	saved := cart.Clone()
	err := s.db.QueryRowContext(ctx, query,
		nullInt64(saved.UserID),
		saved.Email,
		first,
		second,
		third,
		nullTime(saved.EmailClickedAt),
		nullTime(saved.FinalizedAt),
		saved.CreatedAt,
		saved.UpdatedAt,
	).Scan(&saved.ID)
	if err != nil {
		s.logger.Error("failed to insert cart",
			"email", cart.Email,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to insert cart: %w", err))
	}

	if err := s.upsertItems(ctx, saved); err != nil {
		return nil, err
	}

	return saved, nil
}

// Save implements store.CartStore.Save
func (s *PostgresCartStore) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE carts
		SET email = $1,
			first_reminder_sent_at = $2,
			second_reminder_sent_at = $3,
			third_reminder_sent_at = $4,
			email_clicked_at = $5,
			finalized_at = $6,
			updated_at = $7
		WHERE id = $8
	`

	first, second, third := reminderColumns(cart)

	result, err := s.db.ExecContext(ctx, query,
		cart.Email,
		first,
		second,
		third,
		nullTime(cart.EmailClickedAt),
		nullTime(cart.FinalizedAt),
		cart.UpdatedAt,
		cart.ID,
	)
	if err != nil {
		s.logger.Error("failed to update cart",
			"cart_id", cart.ID,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to update cart: %w", err))
	}

	if err := CheckRowsAffected(result, "cart"); err != nil {
		return nil, err
	}

	saved := cart.Clone()
	if err := s.upsertItems(ctx, saved); err != nil {
		return nil, err
	}

	return saved, nil
}

// GetByID implements store.CartStore.GetByID
func (s *PostgresCartStore) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	return s.getByID(ctx, id, false)
}

// GetByIDForUpdate implements store.CartStore.GetByIDForUpdate
func (s *PostgresCartStore) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Cart, error) {
	return s.getByID(ctx, id, true)
}

func (s *PostgresCartStore) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, email,
			first_reminder_sent_at, second_reminder_sent_at, third_reminder_sent_at,
			email_clicked_at, finalized_at, created_at, updated_at
		FROM carts
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		cart    domain.Cart
		userID  sql.NullInt64
		first   sql.NullTime
		second  sql.NullTime
		third   sql.NullTime
		clicked sql.NullTime
		final   sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&cart.ID,
		&userID,
		&cart.Email,
		&first,
		&second,
		&third,
		&clicked,
		&final,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrCartNotFound
		}
		s.logger.Error("failed to query cart",
			"cart_id", id,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to query cart: %w", err))
	}

	if userID.Valid {
		cart.UserID = &userID.Int64
	}
	cart.ReminderSentAt = make(map[domain.ReminderStep]time.Time)
	if first.Valid {
		cart.ReminderSentAt[domain.ReminderStepFirst] = first.Time.UTC()
	}
	if second.Valid {
		cart.ReminderSentAt[domain.ReminderStepSecond] = second.Time.UTC()
	}
	if third.Valid {
		cart.ReminderSentAt[domain.ReminderStepThird] = third.Time.UTC()
	}
	if clicked.Valid {
		t := clicked.Time.UTC()
		cart.EmailClickedAt = &t
	}
	if final.Valid {
		t := final.Time.UTC()
		cart.FinalizedAt = &t
	}

	items, err := s.loadItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

// loadItems retrieves all item lines of a cart, oldest first.
func (s *PostgresCartStore) loadItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	query := `
		SELECT product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		s.logger.Error("failed to query cart items",
			"cart_id", cartID,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to query cart items: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, MapError(fmt.Errorf("failed to scan cart item row: %w", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(fmt.Errorf("error iterating cart item rows: %w", err))
	}

	return items, nil
}

// upsertItems writes the cart's item lines. A line already present for
// the same product has its quantity overwritten with the in-memory
// value, which the domain layer keeps as the merged total.
func (s *PostgresCartStore) upsertItems(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for _, item := range cart.Items {
		if _, err := s.db.ExecContext(ctx, query,
			cart.ID,
			item.ProductID,
			item.Quantity,
			now,
			now,
		); err != nil {
			s.logger.Error("failed to upsert cart item",
				"cart_id", cart.ID,
				"product_id", item.ProductID,
				"error", err)
			return MapError(fmt.Errorf("failed to upsert cart item: %w", err))
		}
	}

	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// reminderColumns flattens the sent-at map into the three step columns.
func reminderColumns(cart *domain.Cart) (first, second, third sql.NullTime) {
	if t, ok := cart.ReminderSentTime(domain.ReminderStepFirst); ok {
		first = sql.NullTime{Time: t, Valid: true}
	}
	if t, ok := cart.ReminderSentTime(domain.ReminderStepSecond); ok {
		second = sql.NullTime{Time: t, Valid: true}
	}
	if t, ok := cart.ReminderSentTime(domain.ReminderStepThird); ok {
		third = sql.NullTime{Time: t, Valid: true}
	}
	return first, second, third
}
