package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a scheduled job
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeCartReminder is the job type for evaluating and sending a
	// cart abandonment reminder at its due time.
	TaskTypeCartReminder = "cart_reminder"
)

// Task represents a unit of delayed work: a one-shot evaluation that may
// run at or any time after RunAt, never before.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// RunAt returns the earliest UTC instant the task may execute
	RunAt() time.Time

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// JobRecord is the persisted form of a scheduled task, as loaded from
// the job store during recovery.
type JobRecord struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	RunAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskResolver rebuilds an executable task from its persisted record.
// Recovery needs this because the job store only holds the serialized
// payload, not the wired dependencies a task needs to run.
type TaskResolver interface {
	ResolveTask(record JobRecord) (Task, error)
}

// JobStore defines the interface for persisting scheduled jobs
type JobStore interface {
	// SaveJob persists a task to the database
	SaveJob(ctx context.Context, task Task) error

	// UpdateJobStatus updates the status of a job
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingJobs retrieves all jobs with "pending" status
	GetPendingJobs(ctx context.Context) ([]JobRecord, error)

	// GetProcessingJobs retrieves jobs with "processing" status.
	// If olderThan is non-zero, only returns jobs that have been in this
	// state longer than the specified duration.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]JobRecord, error)
}
