// Package main implements the entry point for the biotrack daemon: it
// wires configuration, logging, the database, and the reminder dispatch
// pipeline, then runs until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/biotrack-api/internal/config"
	"github.com/phrazzld/biotrack-api/internal/platform/logger"
	"github.com/phrazzld/biotrack-api/internal/platform/postgres"
	"github.com/phrazzld/biotrack-api/internal/service"
	"github.com/phrazzld/biotrack-api/internal/task"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("biotrackd failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.App.LogLevel)
	appLogger.Info("configuration loaded",
		"log_level", cfg.App.LogLevel,
		"tick_interval", cfg.App.TickInterval,
		"queue_size", cfg.App.QueueSize,
		"worker_count", cfg.App.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, appLogger)

	db, err := postgres.Open(ctx, cfg.Database.URL, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if err := db.CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	stores := db.Stores()
	reminders := service.NewReminderService(stores.Schedules, db, appLogger)

	queue := task.NewReminderQueue(cfg.App.QueueSize, appLogger)
	notifier := task.NotifierFunc(func(ctx context.Context, r task.Reminder) error {
		// Delivery surface: a structured log line per reminder. A richer
		// front end subscribes here.
		appLogger.Info("reminder due",
			"person_id", r.Schedule.PersonID,
			"schedule_id", r.Schedule.ID,
			"type", r.Schedule.Type,
			"due_at", r.DueAt,
			"note", r.Schedule.Note)
		return nil
	})
	pool := task.NewWorkerPool(queue, reminders, notifier,
		task.WorkerPoolConfig{WorkerCount: cfg.App.WorkerCount}, appLogger)
	dispatcher := task.NewDispatcher(reminders, queue,
		task.DispatcherConfig{TickInterval: cfg.App.TickInterval}, appLogger)

	pool.Start()
	dispatcher.Start()
	appLogger.Info("biotrackd running")

	<-ctx.Done()
	appLogger.Info("shutdown signal received")

	dispatcher.Stop()
	queue.Close()
	pool.Stop()
	appLogger.Info("biotrackd stopped")
	return nil
}
