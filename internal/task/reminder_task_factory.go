package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmolloy/cartminder/internal/domain"
)

// SendReminderTaskFactory creates SendReminderTask instances, both for
// fresh scheduling requests and for jobs rebuilt from the store during
// recovery.
type SendReminderTaskFactory struct {
	sender ReminderSender
	logger *slog.Logger
}

// NewSendReminderTaskFactory creates a new factory for SendReminderTasks
func NewSendReminderTaskFactory(sender ReminderSender, logger *slog.Logger) *SendReminderTaskFactory {
	return &SendReminderTaskFactory{
		sender: sender,
		logger: logger.With("component", "reminder_task_factory"),
	}
}

// CreateTask creates a new SendReminderTask for the given cart and step
func (f *SendReminderTaskFactory) CreateTask(
	cartID int64,
	step domain.ReminderStep,
	runAt time.Time,
) (Task, error) {
	return NewSendReminderTask(cartID, step, runAt, f.sender, f.logger)
}

// ResolveTask implements TaskResolver: it rebuilds an executable task
// from a persisted job record. The rebuilt task keeps the record's ID so
// status updates land on the original row.
func (f *SendReminderTaskFactory) ResolveTask(record JobRecord) (Task, error) {
	if record.Type != TaskTypeCartReminder {
		return nil, fmt.Errorf("unknown job type %q", record.Type)
	}

	var payload ReminderJobPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	task, err := NewSendReminderTask(payload.CartID, payload.Step, record.RunAt, f.sender, f.logger)
	if err != nil {
		return nil, err
	}

	task.id = record.ID
	task.status = record.Status
	return task, nil
}

// Ensure the factory satisfies TaskResolver
var _ TaskResolver = (*SendReminderTaskFactory)(nil)
