package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityrepo "factory_portal_backend/internal/activity/repository"
	activityservice "factory_portal_backend/internal/activity/service"
	checklistrepo "factory_portal_backend/internal/checklist/repository"
	checklistservice "factory_portal_backend/internal/checklist/service"
	"factory_portal_backend/internal/events"
	"factory_portal_backend/internal/scheduler"
	tasksrepo "factory_portal_backend/internal/tasks/repository"
	tasksservice "factory_portal_backend/internal/tasks/service"
	"factory_portal_backend/platform/config"
	"factory_portal_backend/platform/db"
	"factory_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Worker-side service wiring (no HTTP handlers required). The worker
	// only reads records and writes activity entries, so it never schedules
	// follow-up reminders itself.
	checklistSvc := checklistservice.New(checklistrepo.New(pool), log)
	tasksSvc := tasksservice.New(tasksrepo.New(pool), checklistSvc, eventBus, nil, log)
	activitySvc := activityservice.New(activityrepo.New(pool), log)

	worker, err := scheduler.NewWorker(cfg, tasksSvc, activitySvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
