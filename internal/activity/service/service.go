package service

import (
	"context"
	"time"

	"factory_portal_backend/internal/activity/repository"
	"factory_portal_backend/internal/events"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Service records portal activity from domain events and serves the admin
// search.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// RegisterHandlers subscribes the audit log to the domain events it keeps.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.TaskStarted{}.EventName(), events.HandlerFunc(s.onTaskStarted))
	bus.Subscribe(events.TaskUpdated{}.EventName(), events.HandlerFunc(s.onTaskUpdated))
	bus.Subscribe(events.TaskFinalized{}.EventName(), events.HandlerFunc(s.onTaskFinalized))
	bus.Subscribe(events.UserSignedIn{}.EventName(), events.HandlerFunc(s.onUserSignedIn))
}

func (s *Service) onTaskStarted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.TaskStarted)
	if !ok {
		return nil
	}
	return s.repo.Insert(ctx, repository.Entry{
		EventType:  e.EventName(),
		Stage:      e.Stage,
		Identifier: e.Identifier,
		RecordID:   &e.RecordID,
		UserID:     &e.UserID,
		OccurredAt: e.OccurredAt(),
	})
}

func (s *Service) onTaskUpdated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.TaskUpdated)
	if !ok {
		return nil
	}
	return s.repo.Insert(ctx, repository.Entry{
		EventType:  e.EventName(),
		Stage:      e.Stage,
		Identifier: e.Identifier,
		RecordID:   &e.RecordID,
		UserID:     &e.UserID,
		OccurredAt: e.OccurredAt(),
	})
}

func (s *Service) onTaskFinalized(ctx context.Context, event events.Event) error {
	e, ok := event.(events.TaskFinalized)
	if !ok {
		return nil
	}
	return s.repo.Insert(ctx, repository.Entry{
		EventType:  e.EventName(),
		Stage:      e.Stage,
		Identifier: e.Identifier,
		RecordID:   &e.RecordID,
		UserID:     &e.UserID,
		OccurredAt: e.OccurredAt(),
	})
}

func (s *Service) onUserSignedIn(ctx context.Context, event events.Event) error {
	e, ok := event.(events.UserSignedIn)
	if !ok {
		return nil
	}
	return s.repo.Insert(ctx, repository.Entry{
		EventType:  e.EventName(),
		UserID:     &e.UserID,
		Detail:     e.Role,
		OccurredAt: e.OccurredAt(),
	})
}

// RecordStaleReminder writes the entry the stale-pending worker produces
// when a record sits unfinished past the reminder delay.
func (s *Service) RecordStaleReminder(ctx context.Context, recordID uuid.UUID, stage, identifier string) error {
	return s.repo.Insert(ctx, repository.Entry{
		EventType:  "tasks.record.stale",
		Stage:      stage,
		Identifier: identifier,
		RecordID:   &recordID,
		Detail:     "record still pending after reminder delay",
		OccurredAt: time.Now(),
	})
}

// Search runs the admin activity search.
func (s *Service) Search(ctx context.Context, filter repository.SearchFilter) ([]repository.Entry, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.Search(ctx, filter)
}
