package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmolloy/cartminder/internal/domain"
	"github.com/jmolloy/cartminder/internal/domain/reminderpolicy"
	"github.com/jmolloy/cartminder/internal/events"
	"github.com/jmolloy/cartminder/internal/store"
	"github.com/jmolloy/cartminder/internal/task"
)

// CartRepository defines the repository interface for the service layer.
// This is aligned with store.CartStore and adds transaction plumbing.
type CartRepository interface {
	// Create saves a new cart, assigning its persistence ID
	Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)

	// Save persists all mutable state of an existing cart
	Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)

	// GetByID retrieves a cart and its items by ID
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)

	// GetByIDForUpdate retrieves a cart while holding a row-level lock
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Cart, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) CartRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}

// ReminderMailer delivers a reminder email for a cart. Failure handling
// beyond reporting the error (retry, backoff) is the mailer's and the
// scheduler's concern, not this service's.
type ReminderMailer interface {
	SendReminder(ctx context.Context, cart *domain.Cart, step domain.ReminderStep) error
}

// CartService provides cart lifecycle operations and the fire-time
// reminder evaluation.
type CartService interface {
	// CreateCart builds and persists a new cart and, when the first
	// reminder is schedulable, requests its future evaluation.
	CreateCart(ctx context.Context, userID *int64, email string) (*domain.Cart, error)

	// GetCart retrieves a cart by its ID
	GetCart(ctx context.Context, cartID int64) (*domain.Cart, error)

	// AddItem adds quantity units of a product to an open cart
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.Cart, error)

	// MarkEmailClicked records a reminder email click, closing the cart.
	// Idempotent.
	MarkEmailClicked(ctx context.Context, cartID int64) (*domain.Cart, error)

	// FinalizeCart converts the cart into a completed order, closing it.
	// Idempotent.
	FinalizeCart(ctx context.Context, cartID int64) (*domain.Cart, error)

	// SendReminder performs the fire-time evaluation for one cart and
	// step: re-check eligibility against current state, deliver, mark
	// sent, and schedule the next step. A cart that is missing or no
	// longer eligible is a benign no-op.
	SendReminder(ctx context.Context, cartID int64, step domain.ReminderStep) error
}

// Common sentinel errors for CartService
var (
	// ErrCartNotFound indicates that the cart does not exist
	ErrCartNotFound = errors.New("cart not found")
)

// CartServiceError wraps errors from the cart service with context.
type CartServiceError struct {
	// Operation is the operation that failed (e.g., "create_cart", "send_reminder")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for CartServiceError.
func (e *CartServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cart service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("cart service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CartServiceError) Unwrap() error {
	return e.Err
}

// NewCartServiceError creates a new CartServiceError.
// Known sentinel errors are returned directly without wrapping.
func NewCartServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrCartNotFound) {
		return ErrCartNotFound
	}
	if errors.Is(err, store.ErrCartNotFound) {
		return ErrCartNotFound
	}

	return &CartServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// cartServiceImpl implements the CartService interface
type cartServiceImpl struct {
	cartRepo     CartRepository
	policy       reminderpolicy.Service
	mailer       ReminderMailer
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewCartService creates a new CartService.
// It returns an error if any of the required dependencies are nil.
func NewCartService(
	cartRepo CartRepository,
	policy reminderpolicy.Service,
	mailer ReminderMailer,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (CartService, error) {
	if cartRepo == nil {
		return nil, &CartServiceError{
			Operation: "create_service",
			Message:   "cartRepo cannot be nil",
		}
	}
	if policy == nil {
		return nil, &CartServiceError{
			Operation: "create_service",
			Message:   "policy cannot be nil",
		}
	}
	if mailer == nil {
		return nil, &CartServiceError{
			Operation: "create_service",
			Message:   "mailer cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &CartServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &cartServiceImpl{
		cartRepo:     cartRepo,
		policy:       policy,
		mailer:       mailer,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "cart_service"),
	}, nil
}

// CreateCart builds a new cart, persists it, and requests the first
// reminder evaluation at its due time.
func (s *cartServiceImpl) CreateCart(
	ctx context.Context,
	userID *int64,
	email string,
) (*domain.Cart, error) {
	cart, err := domain.NewCart(userID, email)
	if err != nil {
		s.logger.Warn("failed to create cart object", "error", err)
		return nil, NewCartServiceError("create_cart", "failed to create cart object", err)
	}

	var created *domain.Cart
	err = store.RunInTransaction(ctx, s.cartRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.cartRepo.WithTx(tx)

		created, err = txRepo.Create(ctx, cart)
		if err != nil {
			s.logger.Error("failed to create cart in transaction",
				"error", err,
				"email", cart.Email)
			return NewCartServiceError("create_cart", "failed to save cart to database", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart created",
		"cart_id", created.ID,
		"email", created.Email)

	if err := s.requestEvaluation(ctx, created, domain.ReminderStepFirst); err != nil {
		return nil, NewCartServiceError("create_cart", "failed to schedule first reminder", err)
	}

	return created, nil
}

// GetCart retrieves a cart by its ID
func (s *cartServiceImpl) GetCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		s.logger.Error("failed to retrieve cart", "error", err, "cart_id", cartID)
		return nil, NewCartServiceError("get_cart", "failed to retrieve cart", err)
	}
	return cart, nil
}

// AddItem adds quantity units of a product to an open cart.
// Addressing a missing cart is a hard failure for this explicit command.
func (s *cartServiceImpl) AddItem(
	ctx context.Context,
	cartID, productID int64,
	quantity int,
) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, "add_item", func(cart *domain.Cart) error {
		return cart.AddItem(productID, quantity)
	})
}

// MarkEmailClicked records a reminder email click. Once clicked, the
// cart is closed and every pending reminder evaluation becomes a no-op;
// no scheduling state needs to be touched here.
func (s *cartServiceImpl) MarkEmailClicked(ctx context.Context, cartID int64) (*domain.Cart, error) {
	now := time.Now().UTC()
	return s.mutate(ctx, cartID, "mark_email_clicked", func(cart *domain.Cart) error {
		cart.MarkEmailClicked(now)
		return nil
	})
}

// FinalizeCart converts the cart into a completed order. As with
// clicking, closing the cart silently invalidates pending evaluations.
func (s *cartServiceImpl) FinalizeCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	now := time.Now().UTC()
	return s.mutate(ctx, cartID, "finalize_cart", func(cart *domain.Cart) error {
		cart.Finalize(now)
		return nil
	})
}

// mutate runs a load-mutate-save cycle for an explicit cart command
// under a row lock, so concurrent mutations of the same cart serialize.
func (s *cartServiceImpl) mutate(
	ctx context.Context,
	cartID int64,
	operation string,
	fn func(cart *domain.Cart) error,
) (*domain.Cart, error) {
	var updated *domain.Cart

	err := store.RunInTransaction(ctx, s.cartRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.cartRepo.WithTx(tx)

		cart, err := txRepo.GetByIDForUpdate(ctx, cartID)
		if err != nil {
			if errors.Is(err, store.ErrCartNotFound) {
				return ErrCartNotFound
			}
			s.logger.Error("failed to load cart",
				"error", err,
				"cart_id", cartID,
				"operation", operation)
			return NewCartServiceError(operation, "failed to load cart", err)
		}

		if err := fn(cart); err != nil {
			return NewCartServiceError(operation, "cart mutation rejected", err)
		}

		updated, err = txRepo.Save(ctx, cart)
		if err != nil {
			s.logger.Error("failed to save cart",
				"error", err,
				"cart_id", cartID,
				"operation", operation)
			return NewCartServiceError(operation, "failed to save cart", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart updated", "cart_id", cartID, "operation", operation)
	return updated, nil
}

// SendReminder is the fire-time evaluation invoked by the scheduler.
// The eligibility gate is re-checked here against current state: the
// instant computed at scheduling time is never trusted, because the cart
// may have closed, been reminded, or disappeared since.
func (s *cartServiceImpl) SendReminder(
	ctx context.Context,
	cartID int64,
	step domain.ReminderStep,
) error {
	now := time.Now().UTC()
	var updated *domain.Cart

	err := store.RunInTransaction(ctx, s.cartRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.cartRepo.WithTx(tx)

		cart, err := txRepo.GetByIDForUpdate(ctx, cartID)
		if err != nil {
			if errors.Is(err, store.ErrCartNotFound) {
				// The cart may have been removed since scheduling; the
				// evaluation is simply dropped.
				s.logger.Info("cart gone before reminder evaluation, dropping",
					"cart_id", cartID,
					"step", step)
				return nil
			}
			return NewCartServiceError("send_reminder", "failed to load cart", err)
		}

		if !s.policy.ShouldSend(cart, step, now) {
			s.logger.Info("reminder no longer eligible, dropping",
				"cart_id", cartID,
				"step", step,
				"closed", cart.IsClosed(),
				"already_sent", cart.HasReminderBeenSent(step))
			return nil
		}

		if err := s.mailer.SendReminder(ctx, cart, step); err != nil {
			s.logger.Error("failed to deliver reminder email",
				"error", err,
				"cart_id", cartID,
				"step", step)
			return NewCartServiceError("send_reminder", "failed to deliver reminder email", err)
		}

		if err := cart.MarkReminderSent(step, now); err != nil {
			// The gate held, so a duplicate mark here means two
			// evaluations raced for the same step. Surface it; the
			// scheduler records the failure without affecting other carts.
			s.logger.Error("failed to mark reminder sent",
				"error", err,
				"cart_id", cartID,
				"step", step)
			return NewCartServiceError("send_reminder", "failed to mark reminder sent", err)
		}

		updated, err = txRepo.Save(ctx, cart)
		if err != nil {
			return NewCartServiceError("send_reminder", "failed to save cart", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if updated == nil {
		// Evaluation was dropped inside the transaction.
		return nil
	}

	s.logger.Info("reminder sent",
		"cart_id", updated.ID,
		"step", step,
		"email", updated.Email)

	// The reminder went out and is recorded; a scheduling failure for
	// the next step must not make this evaluation look failed.
	if err := s.requestEvaluation(ctx, updated, ""); err != nil {
		s.logger.Error("failed to schedule next reminder",
			"error", err,
			"cart_id", updated.ID,
			"completed_step", step)
	}

	return nil
}

// requestEvaluation emits a scheduling request for the given step. When
// step is empty, NextSchedule derives the step from the cart's current
// progress. Unschedulable steps are silently skipped.
func (s *cartServiceImpl) requestEvaluation(
	ctx context.Context,
	cart *domain.Cart,
	step domain.ReminderStep,
) error {
	if cart.ID == 0 {
		return nil
	}

	var dueAt time.Time
	if step != "" {
		if !s.policy.CanSchedule(step) {
			return nil
		}
		due, ok := s.policy.DueAt(cart, step)
		if !ok {
			return nil
		}
		dueAt = due
	} else {
		sent, ok := lastSentStep(cart)
		if !ok {
			return nil
		}
		next, due, ok := s.policy.NextSchedule(cart, sent)
		if !ok {
			return nil
		}
		step = next
		dueAt = due
	}

	payload := task.ReminderJobPayload{
		CartID: cart.ID,
		Step:   step,
		RunAt:  dueAt,
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeCartReminder, payload)
	if err != nil {
		return fmt.Errorf("failed to create scheduling event: %w", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to emit scheduling event: %w", err)
	}

	s.logger.Info("reminder evaluation requested",
		"cart_id", cart.ID,
		"step", step,
		"due_at", dueAt,
		"event_id", event.ID)
	return nil
}

// lastSentStep returns the most recent step with a sent timestamp.
func lastSentStep(cart *domain.Cart) (domain.ReminderStep, bool) {
	steps := domain.OrderedReminderSteps()
	for i := len(steps) - 1; i >= 0; i-- {
		if cart.HasReminderBeenSent(steps[i]) {
			return steps[i], true
		}
	}
	return "", false
}
