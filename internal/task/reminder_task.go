package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmolloy/cartminder/internal/domain"
)

// Common errors
var (
	ErrNilReminderSender = errors.New("reminder sender cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrInvalidCartID     = errors.New("cart ID must be positive")
	ErrInvalidStep       = errors.New("invalid reminder step")
)

// ReminderSender performs the fire-time evaluation for one cart and
// step: re-check the scheduling gate against current state, deliver if
// still eligible, mark the step sent, and schedule the follow-up. The
// cart service implements this.
type ReminderSender interface {
	SendReminder(ctx context.Context, cartID int64, step domain.ReminderStep) error
}

// ReminderJobPayload is the serialized data stored with a scheduled
// reminder job. It is everything needed to rebuild the task after a
// restart.
type ReminderJobPayload struct {
	CartID int64               `json:"cart_id"`
	Step   domain.ReminderStep `json:"step"`
	RunAt  time.Time           `json:"run_at"`
}

// SendReminderTask implements the Task interface for a single delayed
// reminder evaluation. It is deliberately thin: all decision logic
// lives behind the ReminderSender, so a stale task fired for a closed
// or already-reminded cart simply evaluates to a no-op.
type SendReminderTask struct {
	id     uuid.UUID
	cartID int64
	step   domain.ReminderStep
	runAt  time.Time
	sender ReminderSender
	logger *slog.Logger
	status TaskStatus
}

// NewSendReminderTask creates a new reminder evaluation task for the
// given cart and step, due at runAt.
func NewSendReminderTask(
	cartID int64,
	step domain.ReminderStep,
	runAt time.Time,
	sender ReminderSender,
	logger *slog.Logger,
) (*SendReminderTask, error) {
	if sender == nil {
		return nil, ErrNilReminderSender
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cartID <= 0 {
		return nil, ErrInvalidCartID
	}
	if !step.IsValid() {
		return nil, ErrInvalidStep
	}

	return &SendReminderTask{
		id:     uuid.New(),
		cartID: cartID,
		step:   step,
		runAt:  runAt.UTC(),
		sender: sender,
		logger: logger.With("task_type", TaskTypeCartReminder, "cart_id", cartID, "step", step),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SendReminderTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SendReminderTask) Type() string {
	return TaskTypeCartReminder
}

// Payload returns the task data as a byte slice
func (t *SendReminderTask) Payload() []byte {
	payload := ReminderJobPayload{
		CartID: t.cartID,
		Step:   t.step,
		RunAt:  t.runAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *SendReminderTask) Status() TaskStatus {
	return t.status
}

// RunAt returns the earliest instant the task may execute
func (t *SendReminderTask) RunAt() time.Time {
	return t.runAt
}

// Execute delegates the fire-time evaluation to the reminder sender.
// A cart that no longer exists or is no longer eligible is not an
// error; the sender handles those as benign no-ops.
func (t *SendReminderTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("evaluating reminder")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.sender.SendReminder(ctx, t.cartID, t.step); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("reminder evaluation failed", "error", err)
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	t.status = TaskStatusCompleted
	return nil
}
