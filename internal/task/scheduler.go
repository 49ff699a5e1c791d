package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerConfig holds configuration for the delayed-dispatch scheduler
type SchedulerConfig struct {
	// Queue names the dispatch channel this scheduler serves. It appears
	// in every log line the scheduler writes.
	Queue string

	// WorkerCount determines how many concurrent workers execute due tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory ready queue
	QueueSize int

	// StuckJobAge defines how long a job can sit in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes.
	StuckJobCheckInterval time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Queue:                 "cart-reminders",
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Scheduler is the delayed-dispatch gateway: it accepts one-shot tasks
// with a fire-at-or-after instant, persists them for crash recovery,
// and hands them to a worker pool once due. There is no cancellation
// path: a task whose reason to exist has evaporated (cart closed, step
// already sent) is expected to detect that itself when it executes.
type Scheduler struct {
	store      JobStore
	resolver   TaskResolver
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     SchedulerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

// NewScheduler creates a new Scheduler. The resolver may be set later
// via SetResolver, before Start, when task factories depend on services
// that are wired after the scheduler itself.
func NewScheduler(store JobStore, config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:      store,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "scheduler", "queue", config.Queue),
		timers:     make(map[uuid.UUID]*time.Timer),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetResolver sets the factory used to rebuild tasks during recovery.
// Must be called before Start.
func (s *Scheduler) SetResolver(resolver TaskResolver) {
	s.resolver = resolver
}

// SetErrorHandler allows setting a custom error handler function
func (s *Scheduler) SetErrorHandler(handler func(task Task, err error)) {
	s.errHandler = handler
}

// Submit persists the task and arms a timer for its due instant.
// A task whose RunAt is already in the past becomes ready immediately.
func (s *Scheduler) Submit(ctx context.Context, task Task) error {
	if err := s.store.SaveJob(ctx, task); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	s.arm(task)

	s.logger.Debug("task scheduled",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"run_at", task.RunAt())
	return nil
}

// Start recovers persisted jobs, then launches the worker pool and the
// stuck-job monitor.
func (s *Scheduler) Start() error {
	if err := s.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go s.stuckJobMonitor()

	return nil
}

// Stop gracefully shuts down the scheduler. Timers still pending are
// stopped; their jobs stay in the store and fire on the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancelFunc()
	s.wg.Wait()
}

// Recover re-arms unfinished jobs from previous runs. Pending jobs keep
// their original due time; jobs caught mid-processing by a crash are
// reset to pending and become ready immediately.
func (s *Scheduler) Recover() error {
	ctx := context.Background()

	pending, err := s.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := s.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	s.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, record := range pending {
		s.recoverRecord(ctx, record, false)
	}

	for _, record := range processing {
		if err := s.store.UpdateJobStatus(ctx, record.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			s.logger.Error("failed to reset processing job status",
				"job_id", record.ID,
				"job_type", record.Type,
				"error", err)
			continue
		}
		s.recoverRecord(ctx, record, true)
	}

	return nil
}

// recoverRecord rebuilds one persisted job and re-arms it. When
// immediate is true the original due time is ignored.
func (s *Scheduler) recoverRecord(ctx context.Context, record JobRecord, immediate bool) {
	if s.resolver == nil {
		s.logger.Error("no task resolver configured, cannot recover job",
			"job_id", record.ID,
			"job_type", record.Type)
		return
	}

	task, err := s.resolver.ResolveTask(record)
	if err != nil {
		s.logger.Error("failed to rebuild job from record",
			"job_id", record.ID,
			"job_type", record.Type,
			"error", err)
		if updateErr := s.store.UpdateJobStatus(ctx, record.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			s.logger.Error("failed to mark unresolvable job failed",
				"job_id", record.ID,
				"error", updateErr)
		}
		return
	}

	if immediate {
		s.ready(task)
		return
	}
	s.arm(task)
}

// arm schedules the task to become ready at its RunAt instant. Past-due
// tasks are handed to the workers right away.
func (s *Scheduler) arm(task Task) {
	delay := time.Until(task.RunAt())
	if delay <= 0 {
		s.ready(task)
		return
	}

	id := task.ID()
	s.mu.Lock()
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.ready(task)
	})
	s.mu.Unlock()
}

// ready pushes a due task onto the worker queue.
func (s *Scheduler) ready(task Task) {
	select {
	case <-s.ctx.Done():
		// Shutting down; the job stays pending in the store and will be
		// recovered on the next start.
	case s.taskChan <- task:
	default:
		s.logger.Error("ready queue is full, dropping task until recovery",
			"task_id", task.ID(),
			"task_type", task.Type())
	}
}

// worker executes due tasks from the queue
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("stopping worker", "worker_id", id)
			return

		case task := <-s.taskChan:
			s.processTask(task, id)
		}
	}
}

// processTask handles execution of a single due task
func (s *Scheduler) processTask(task Task, workerID int) {
	ctx := context.Background()
	logger := s.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := s.store.UpdateJobStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("executing task")

	err := task.Execute(ctx)

	if err != nil {
		logger.Error("task execution failed", "error", err)
		if updateErr := s.store.UpdateJobStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}

		s.errHandler(task, err)
	} else {
		logger.Info("task completed")
		if updateErr := s.store.UpdateJobStatus(ctx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update job status to completed", "error", updateErr)
		}
	}
}

// stuckJobMonitor periodically resets jobs that have been in
// "processing" state for too long and re-arms them.
func (s *Scheduler) stuckJobMonitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := s.store.GetProcessingJobs(ctx, s.config.StuckJobAge)
			if err != nil {
				s.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}

			if len(stuck) == 0 {
				continue
			}

			s.logger.Info("found stuck jobs", "count", len(stuck))

			for _, record := range stuck {
				if err := s.store.UpdateJobStatus(ctx, record.ID, TaskStatusPending,
					"Reset after being stuck in processing state"); err != nil {
					s.logger.Error("failed to reset stuck job status",
						"job_id", record.ID,
						"job_type", record.Type,
						"error", err)
					continue
				}
				s.recoverRecord(ctx, record, true)
			}
		}
	}
}
