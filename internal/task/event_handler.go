package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmolloy/cartminder/internal/events"
)

// ReminderEventHandler implements the events.EventHandler interface to
// turn reminder scheduling requests into delayed tasks. It is the glue
// between the cart service, which only emits events, and the scheduler.
type ReminderEventHandler struct {
	factory   *SendReminderTaskFactory
	scheduler *Scheduler
	logger    *slog.Logger
}

// NewReminderEventHandler creates a new event handler that builds
// reminder tasks with the given factory and submits them to the
// scheduler.
func NewReminderEventHandler(
	factory *SendReminderTaskFactory,
	scheduler *Scheduler,
	logger *slog.Logger,
) *ReminderEventHandler {
	return &ReminderEventHandler{
		factory:   factory,
		scheduler: scheduler,
		logger:    logger.With("component", "reminder_event_handler"),
	}
}

// HandleEvent processes reminder scheduling requests by creating and
// submitting a delayed task. Events of other types are ignored.
func (h *ReminderEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeCartReminder {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload ReminderJobPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(payload.CartID, payload.Step, payload.RunAt)
	if err != nil {
		h.logger.Error("failed to create reminder task",
			"error", err,
			"cart_id", payload.CartID,
			"step", payload.Step,
			"event_id", event.ID)
		return fmt.Errorf("failed to create reminder task: %w", err)
	}

	if err := h.scheduler.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit reminder task",
			"error", err,
			"task_id", task.ID(),
			"cart_id", payload.CartID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit reminder task: %w", err)
	}

	h.logger.Info("reminder task scheduled",
		"task_id", task.ID(),
		"cart_id", payload.CartID,
		"step", payload.Step,
		"run_at", payload.RunAt,
		"event_id", event.ID)
	return nil
}

// Ensure ReminderEventHandler implements events.EventHandler
var _ events.EventHandler = (*ReminderEventHandler)(nil)
