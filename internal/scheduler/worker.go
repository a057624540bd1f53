package scheduler

import (
	"context"
	"fmt"

	activityservice "factory_portal_backend/internal/activity/service"
	tasksservice "factory_portal_backend/internal/tasks/service"
	"factory_portal_backend/platform/config"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes the scheduled reminders. It runs in its own process
// (cmd/scheduler) against the same database and Redis.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	tasks    *tasksservice.Service
	activity *activityservice.Service
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, tasks *tasksservice.Service, activity *activityservice.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		tasks:    tasks,
		activity: activity,
		log:      log,
	}

	mux.HandleFunc(TaskStalePendingReminder, w.handleStalePendingReminder)

	return w, nil
}

// handleStalePendingReminder fires after the configured delay. If the
// record was finalized in the meantime the reminder is dropped silently;
// otherwise the stale state is written to the activity log for the admin
// dashboard to surface.
func (w *Worker) handleStalePendingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStalePendingReminderPayload(task)
	if err != nil {
		return err
	}

	recordID, err := uuid.Parse(payload.RecordID)
	if err != nil {
		return err
	}

	pending, err := w.tasks.IsStillPending(ctx, recordID)
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}

	record, err := w.tasks.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}

	w.log.Warn("task record still pending after reminder delay",
		"record_id", recordID.String(),
		"stage", record.Stage,
		"identifier", record.Identifier,
	)
	return w.activity.RecordStaleReminder(ctx, recordID, record.Stage, record.Identifier)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
