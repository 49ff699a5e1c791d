package domain

import (
	"errors"
	"strings"
	"time"
)

// Cart-specific validation and state errors
var (
	// ErrEmptyCartEmail is returned when a cart email is empty or blank.
	ErrEmptyCartEmail = errors.New("cart email cannot be empty")

	// ErrInvalidProductID is returned when a product ID is zero or negative.
	ErrInvalidProductID = errors.New("product ID must be positive")

	// ErrInvalidQuantity is returned when an item quantity is below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrCartClosed is returned when mutating a cart that has been
	// finalized or whose reminder email has been clicked.
	ErrCartClosed = errors.New("cart is closed and cannot be modified")

	// ErrReminderAlreadySent is returned when marking a reminder step
	// that already has a sent timestamp. The first mark wins; a second
	// mark indicates a scheduling bug upstream.
	ErrReminderAlreadySent = errors.New("reminder has already been sent for this step")

	// ErrInvalidReminderStep is returned when a reminder step is not one
	// of the known values.
	ErrInvalidReminderStep = errors.New("invalid reminder step")
)

// CartItem is a single product line inside a cart. Items have no
// lifecycle of their own; the owning cart enforces uniqueness per
// product and merges duplicate adds into one line.
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart is the aggregate root for an in-progress, possibly abandoned
// order. Progress through the reminder sequence is encoded entirely in
// which timestamps are set: one optional sent-at per reminder step,
// plus the clicked-at and finalized-at markers that close the cart.
//
// A cart is closed once FinalizedAt or EmailClickedAt is set. Closed
// carts reject item and reminder mutations; closing itself is
// idempotent and irreversible.
type Cart struct {
	// ID is the persistence identity. Zero until the cart is first saved.
	ID             int64                      `json:"id"`
	UserID         *int64                     `json:"user_id,omitempty"`
	Email          string                     `json:"email"`
	Items          []CartItem                 `json:"items"`
	ReminderSentAt map[ReminderStep]time.Time `json:"reminder_sent_at"`
	EmailClickedAt *time.Time                 `json:"email_clicked_at,omitempty"`
	FinalizedAt    *time.Time                 `json:"finalized_at,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// NewCart creates an open, empty cart for the given email. The email is
// normalized (trimmed, lower-cased) and must be non-blank. userID may be
// nil for anonymous carts. Creation and update timestamps are set to now.
func NewCart(userID *int64, email string) (*Cart, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Cart{
		UserID:         userID,
		Email:          normalized,
		Items:          []CartItem{},
		ReminderSentAt: make(map[ReminderStep]time.Time, 3),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NormalizeEmail trims surrounding whitespace and lower-cases the
// address. Returns ErrEmptyCartEmail if nothing remains.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrEmptyCartEmail
	}
	return normalized, nil
}

// Validate checks the cart's field-level invariants.
// Returns an error if any field fails validation.
func (c *Cart) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrEmptyCartEmail
	}

	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID <= 0 {
			return ErrInvalidProductID
		}
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if _, dup := seen[item.ProductID]; dup {
			return ErrInvalidProductID
		}
		seen[item.ProductID] = struct{}{}
	}

	return nil
}

// AddItem adds quantity units of the given product to the cart.
// If a line for the product already exists its quantity is increased;
// otherwise a new line is appended. Fails on closed carts and on
// non-positive product IDs or quantities below 1.
func (c *Cart) AddItem(productID int64, quantity int) error {
	if c.IsClosed() {
		return ErrCartClosed
	}
	if productID <= 0 {
		return ErrInvalidProductID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.touch()
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	c.touch()
	return nil
}

// MarkReminderSent records that the reminder for the given step was sent
// at sentAt. Each step can be marked at most once; a second mark fails
// with ErrReminderAlreadySent without altering state. Ordering between
// steps is deliberately not enforced here; the reminder policy service
// owns the dependency check between steps.
func (c *Cart) MarkReminderSent(step ReminderStep, sentAt time.Time) error {
	if !step.IsValid() {
		return ErrInvalidReminderStep
	}
	if c.IsClosed() {
		return ErrCartClosed
	}
	if c.HasReminderBeenSent(step) {
		return ErrReminderAlreadySent
	}

	if c.ReminderSentAt == nil {
		c.ReminderSentAt = make(map[ReminderStep]time.Time, 3)
	}
	c.ReminderSentAt[step] = sentAt.UTC()
	c.touch()
	return nil
}

// MarkEmailClicked records the first time the customer clicked a
// reminder email. Subsequent calls are no-ops. Clicking is how a cart
// becomes closed, so this is not gated by the closed check.
func (c *Cart) MarkEmailClicked(clickedAt time.Time) {
	if c.EmailClickedAt != nil {
		return
	}
	t := clickedAt.UTC()
	c.EmailClickedAt = &t
	c.touch()
}

// Finalize records the conversion of the cart into a completed order.
// Subsequent calls are no-ops.
func (c *Cart) Finalize(finalizedAt time.Time) {
	if c.FinalizedAt != nil {
		return
	}
	t := finalizedAt.UTC()
	c.FinalizedAt = &t
	c.touch()
}

// IsClosed reports whether the cart permanently rejects item and
// reminder mutations, either because it was finalized or because the
// customer clicked a reminder email.
func (c *Cart) IsClosed() bool {
	return c.IsFinalized() || c.EmailClickedAt != nil
}

// IsFinalized reports whether the cart was converted into an order.
func (c *Cart) IsFinalized() bool {
	return c.FinalizedAt != nil
}

// HasReminderBeenSent reports whether the given step's reminder has a
// sent timestamp.
func (c *Cart) HasReminderBeenSent(step ReminderStep) bool {
	_, ok := c.ReminderSentAt[step]
	return ok
}

// ReminderSentTime returns the sent timestamp for the given step.
// The second return value is false if the step has not been sent.
func (c *Cart) ReminderSentTime(step ReminderStep) (time.Time, bool) {
	t, ok := c.ReminderSentAt[step]
	return t, ok
}

// NextPendingStep returns the first step in sending order without a
// sent timestamp. The second return value is false once all steps have
// been sent. Pending is a structural notion only: a pending step may
// still be unsendable (closed cart, unmet dependency, not yet due).
func (c *Cart) NextPendingStep() (ReminderStep, bool) {
	for _, step := range OrderedReminderSteps() {
		if !c.HasReminderBeenSent(step) {
			return step, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the cart. Stores return clones so their
// callers never share mutable state with persistence internals.
func (c *Cart) Clone() *Cart {
	clone := *c
	if c.Items != nil {
		clone.Items = make([]CartItem, len(c.Items))
		copy(clone.Items, c.Items)
	}
	if c.ReminderSentAt != nil {
		clone.ReminderSentAt = make(map[ReminderStep]time.Time, len(c.ReminderSentAt))
		for step, t := range c.ReminderSentAt {
			clone.ReminderSentAt[step] = t
		}
	}
	if c.UserID != nil {
		v := *c.UserID
		clone.UserID = &v
	}
	if c.EmailClickedAt != nil {
		t := *c.EmailClickedAt
		clone.EmailClickedAt = &t
	}
	if c.FinalizedAt != nil {
		t := *c.FinalizedAt
		clone.FinalizedAt = &t
	}
	return &clone
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
