package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmolloy/cartminder/internal/platform/logger"
	"github.com/jmolloy/cartminder/internal/store"
	"github.com/jmolloy/cartminder/internal/task"
)

// PostgresJobStore implements the task.JobStore interface using PostgreSQL.
// Scheduled jobs survive process restarts through this table; the
// scheduler re-arms them from here on startup.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// Ensure PostgresJobStore implements task.JobStore interface
var _ task.JobStore = (*PostgresJobStore)(nil)

// SaveJob persists a scheduled job to the database
func (s *PostgresJobStore) SaveJob(ctx context.Context, t task.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO reminder_jobs (id, type, payload, status, run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		t.RunAt().UTC(),
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save job",
			"job_id", t.ID(),
			"job_type", t.Type(),
			"error", err)
		return MapError(fmt.Errorf("failed to save job to database: %w", err))
	}

	return nil
}

// UpdateJobStatus updates the status of a job in the database
func (s *PostgresJobStore) UpdateJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE reminder_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		now,
		jobID,
	)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return MapError(fmt.Errorf("failed to update job status: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// The job row may have been pruned; the status change is moot.
		log.Warn("no job found with ID to update status",
			"job_id", jobID)
		return nil
	}

	return nil
}

// GetPendingJobs retrieves all jobs with "pending" status
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]task.JobRecord, error) {
	return s.getJobsByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingJobs retrieves jobs with "processing" status
func (s *PostgresJobStore) GetProcessingJobs(
	ctx context.Context,
	olderThan time.Duration,
) ([]task.JobRecord, error) {
	return s.getJobsByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// getJobsByStatus is a helper method to get jobs by status with optional age filter
func (s *PostgresJobStore) getJobsByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.JobRecord, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []interface{}

	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status, error_message, run_at, created_at, updated_at
			FROM reminder_jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY run_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, type, payload, status, error_message, run_at, created_at, updated_at
			FROM reminder_jobs
			WHERE status = $1
			ORDER BY run_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to query jobs by status: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var records []task.JobRecord

	for rows.Next() {
		var record task.JobRecord
		var errorMessage sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.Type,
			&record.Payload,
			&record.Status,
			&errorMessage,
			&record.RunAt,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			log.Error("failed to scan job row",
				"status", status,
				"error", err)
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}

		record.ErrorMessage = errorMessage.String
		record.RunAt = record.RunAt.UTC()
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating job rows",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return records, nil
}
