// Package main implements the entry point for the cartminder server,
// which tracks shopping carts and sends escalating abandonment
// reminder emails until the customer returns or checks out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/jmolloy/cartminder/internal/config"
	"github.com/jmolloy/cartminder/internal/platform/logger"
	"github.com/jmolloy/cartminder/internal/platform/postgres"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply pending database migrations before starting")
	migrateOnly := flag.Bool("migrate-only", false, "apply pending database migrations and exit")
	flag.Parse()

	cfg, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := setupDatabase(cfg, slog.Default())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrate || *migrateOnly {
		slog.Info("Applying database migrations")
		if err := postgres.RunMigrations(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		slog.Info("Database migrations applied")
		if *migrateOnly {
			return
		}
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, slog.Default(), db)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application-wide logging.
// Returns the loaded config and any initialization error.
func initializeApp() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	_, err = logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)
	slog.Debug("Reminder schedule configured",
		"first_hours", cfg.Reminder.FirstHours,
		"second_hours", cfg.Reminder.SecondHours,
		"third_hours", cfg.Reminder.ThirdHours)

	return cfg, nil
}
