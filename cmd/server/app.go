package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmolloy/cartminder/internal/config"
	"github.com/jmolloy/cartminder/internal/domain/reminderpolicy"
	"github.com/jmolloy/cartminder/internal/events"
	"github.com/jmolloy/cartminder/internal/platform/postgres"
	"github.com/jmolloy/cartminder/internal/platform/sendgrid"
	"github.com/jmolloy/cartminder/internal/service"
	"github.com/jmolloy/cartminder/internal/store"
	"github.com/jmolloy/cartminder/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	cartStore store.CartStore
	jobStore  task.JobStore

	// Service interfaces
	policy      reminderpolicy.Service
	mailer      service.ReminderMailer
	cartService service.CartService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	scheduler *task.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger,
// and database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.cartStore = postgres.NewPostgresCartStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db)

	// Initialize the reminder schedule policy from configuration
	app.policy = reminderpolicy.NewService(reminderpolicy.NewIntervals(reminderpolicy.IntervalsConfig{
		FirstHours:  cfg.Reminder.FirstHours,
		SecondHours: cfg.Reminder.SecondHours,
		ThirdHours:  cfg.Reminder.ThirdHours,
	}))

	// Initialize the mail gateway
	mailer, err := sendgrid.NewMailer(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = mailer

	// Initialize event emitter
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize cart service
	cartRepoAdapter := service.NewCartRepositoryAdapter(app.cartStore, app.db)
	app.cartService, err = service.NewCartService(
		cartRepoAdapter,
		app.policy,
		app.mailer,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart service: %w", err)
	}

	// Initialize the scheduler and wire the reminder task pipeline. The
	// cart service doubles as the task-side reminder sender, so the
	// fire-time evaluation lives in one place.
	sender, ok := app.cartService.(task.ReminderSender)
	if !ok {
		return nil, fmt.Errorf("cart service does not implement the reminder sender interface")
	}

	taskFactory := task.NewSendReminderTaskFactory(sender, logger)

	app.scheduler = task.NewScheduler(app.jobStore, task.SchedulerConfig{
		Queue:                 cfg.Reminder.Queue,
		WorkerCount:           cfg.Task.WorkerCount,
		QueueSize:             cfg.Task.QueueSize,
		StuckJobAge:           time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckJobCheckInterval: time.Duration(cfg.Task.StuckTaskCheckMinutes) * time.Minute,
	}, logger)
	app.scheduler.SetResolver(taskFactory)

	// Register the event handler so scheduling requests emitted by the
	// cart service become persisted, delayed tasks.
	reminderHandler := task.NewReminderEventHandler(taskFactory, app.scheduler, logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(reminderHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register reminder handler")
	}

	// Start the scheduler. This also recovers any jobs persisted by a
	// previous process and re-arms their timers.
	if err := app.scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
