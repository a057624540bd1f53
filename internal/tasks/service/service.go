package service

import (
	"context"
	"errors"

	"factory_portal_backend/internal/events"
	"factory_portal_backend/internal/tasks/repository"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/apperr"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// CatalogReader supplies the checklist catalog for a stage. Implemented by
// the checklist service.
type CatalogReader interface {
	CatalogForStage(ctx context.Context, stage tracking.Stage) ([]tracking.CatalogItem, error)
}

// StaleReminderScheduler enqueues a delayed reminder that fires if a record
// is still pending after the configured delay. Implemented by the asynq
// scheduler client; nil when Redis is not configured.
type StaleReminderScheduler interface {
	ScheduleStaleReminder(ctx context.Context, recordID uuid.UUID) error
}

// Service owns the task record lifecycle and implements tracking.Gateway
// for the station engines.
type Service struct {
	repo     repository.RecordRepository
	catalogs CatalogReader
	bus      events.Bus
	reminder StaleReminderScheduler
	log      *logger.Logger
}

func New(repo repository.RecordRepository, catalogs CatalogReader, bus events.Bus, reminder StaleReminderScheduler, log *logger.Logger) *Service {
	return &Service{repo: repo, catalogs: catalogs, bus: bus, reminder: reminder, log: log}
}

var _ tracking.Gateway = (*Service)(nil)

// FetchCatalog implements tracking.Gateway.
func (s *Service) FetchCatalog(ctx context.Context, stage tracking.Stage) ([]tracking.CatalogItem, error) {
	return s.catalogs.CatalogForStage(ctx, stage)
}

// FetchIdentifierStatus implements tracking.Gateway. Precedence: a
// finalized record wins, then the caller's own pending record, then a
// duplicate held by someone else, then the upstream-presence check.
func (s *Service) FetchIdentifierStatus(ctx context.Context, stage tracking.Stage, identifier string, userID uuid.UUID) (tracking.IdentifierStatus, error) {
	records, err := s.repo.FindByStageIdentifier(ctx, string(stage), identifier)
	if err != nil {
		return tracking.IdentifierStatus{}, apperr.Wrap(apperr.KindInternal, "status lookup failed", err)
	}

	var ownPending, otherPending *repository.Record
	for i := range records {
		record := &records[i]
		switch {
		case record.Status == repository.StatusFinalized:
			return tracking.IdentifierStatus{Status: tracking.StatusFinalized, RecordID: record.ID}, nil
		case record.CreatedBy == userID && ownPending == nil:
			ownPending = record
		case record.CreatedBy != userID && otherPending == nil:
			otherPending = record
		}
	}

	if ownPending != nil {
		return tracking.IdentifierStatus{
			Status:   tracking.StatusPending,
			RecordID: ownPending.ID,
			Checks:   ownPending.Checks,
			Color:    ownPending.Color,
			RAL:      ownPending.RAL,
		}, nil
	}
	if otherPending != nil {
		return tracking.IdentifierStatus{Status: tracking.StatusDuplicate, RecordID: otherPending.ID}, nil
	}

	profile, err := tracking.ProfileFor(stage)
	if err != nil {
		return tracking.IdentifierStatus{}, err
	}
	if profile.Upstream != "" {
		present, err := s.repo.HasFinalized(ctx, string(profile.Upstream), identifier)
		if err != nil {
			return tracking.IdentifierStatus{}, apperr.Wrap(apperr.KindInternal, "upstream lookup failed", err)
		}
		if !present {
			return tracking.IdentifierStatus{Status: tracking.StatusNotFound}, nil
		}
	}

	return tracking.IdentifierStatus{Status: tracking.StatusFree}, nil
}

// FetchUserPending implements tracking.Gateway.
func (s *Service) FetchUserPending(ctx context.Context, userID uuid.UUID) ([]tracking.PendingTask, error) {
	records, err := s.repo.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "pending lookup failed", err)
	}

	totals := make(map[string]int)
	tasks := make([]tracking.PendingTask, 0, len(records))
	for _, record := range records {
		total, ok := totals[record.Stage]
		if !ok {
			total = s.activeItemCount(ctx, tracking.Stage(record.Stage))
			totals[record.Stage] = total
		}

		done := 0
		for _, checked := range record.Checks {
			if checked {
				done++
			}
		}

		tasks = append(tasks, tracking.PendingTask{
			Stage:      tracking.Stage(record.Stage),
			RecordID:   record.ID,
			Identifier: record.Identifier,
			Color:      record.Color,
			RAL:        record.RAL,
			DoneCount:  done,
			TotalCount: total,
		})
	}
	return tasks, nil
}

// FetchSnapshot implements tracking.Gateway.
func (s *Service) FetchSnapshot(ctx context.Context, stage tracking.Stage, recordID uuid.UUID) (tracking.SnapshotResult, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return tracking.SnapshotResult{}, nil
	}
	if err != nil {
		return tracking.SnapshotResult{}, apperr.Wrap(apperr.KindInternal, "snapshot lookup failed", err)
	}
	if record.Stage != string(stage) || record.Status != repository.StatusPending {
		return tracking.SnapshotResult{}, nil
	}

	return tracking.SnapshotResult{
		Exists: true,
		Snapshot: tracking.Snapshot{
			RecordID:   record.ID,
			Identifier: record.Identifier,
			Checks:     record.Checks,
			Color:      record.Color,
			RAL:        record.RAL,
		},
	}, nil
}

// StartRecord implements tracking.Gateway.
func (s *Service) StartRecord(ctx context.Context, stage tracking.Stage, draft tracking.RecordDraft, userID uuid.UUID) (uuid.UUID, error) {
	record, err := s.repo.Create(ctx, string(stage), draft.Identifier, draft.Color, draft.RAL, draft.Checks, userID)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "creating record failed", err)
	}

	s.bus.Publish(ctx, events.TaskStarted{
		BaseEvent:  events.NewBaseEvent(),
		RecordID:   record.ID,
		Stage:      record.Stage,
		Identifier: record.Identifier,
		UserID:     userID,
	})

	if s.reminder != nil {
		if err := s.reminder.ScheduleStaleReminder(ctx, record.ID); err != nil {
			s.log.Warn("scheduling stale reminder failed", "record_id", record.ID.String(), "error", err.Error())
		}
	}
	return record.ID, nil
}

// UpdateRecord implements tracking.Gateway.
func (s *Service) UpdateRecord(ctx context.Context, stage tracking.Stage, recordID uuid.UUID, draft tracking.RecordDraft) error {
	err := s.repo.Update(ctx, recordID, draft.Identifier, draft.Color, draft.RAL, draft.Checks)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("record not found")
	case errors.Is(err, repository.ErrAlreadyFinalized):
		return apperr.Conflict("record already finalized")
	case err != nil:
		return apperr.Wrap(apperr.KindInternal, "updating record failed", err)
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err == nil {
		s.bus.Publish(ctx, events.TaskUpdated{
			BaseEvent:  events.NewBaseEvent(),
			RecordID:   record.ID,
			Stage:      record.Stage,
			Identifier: record.Identifier,
			UserID:     record.CreatedBy,
		})
	}
	return nil
}

// FinalizeRecord implements tracking.Gateway.
func (s *Service) FinalizeRecord(ctx context.Context, stage tracking.Stage, recordID uuid.UUID) error {
	err := s.repo.Finalize(ctx, recordID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("record not found")
	case errors.Is(err, repository.ErrAlreadyFinalized):
		return apperr.Conflict("record already finalized")
	case err != nil:
		return apperr.Wrap(apperr.KindInternal, "finalizing record failed", err)
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err == nil {
		s.bus.Publish(ctx, events.TaskFinalized{
			BaseEvent:  events.NewBaseEvent(),
			RecordID:   record.ID,
			Stage:      record.Stage,
			Identifier: record.Identifier,
			UserID:     record.CreatedBy,
		})
	}
	return nil
}

// =============================================================================
// Admin and label operations (outside the Gateway interface)
// =============================================================================

// GetRecord returns one record for the admin detail view and label endpoint.
func (s *Service) GetRecord(ctx context.Context, recordID uuid.UUID) (repository.Record, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Record{}, apperr.NotFound("record not found")
	}
	return record, err
}

// ListRecords returns the filtered admin listing.
func (s *Service) ListRecords(ctx context.Context, filter repository.ListFilter) ([]repository.Record, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// IsStillPending reports whether a record has not been finalized yet. Used
// by the stale-reminder worker.
func (s *Service) IsStillPending(ctx context.Context, recordID uuid.UUID) (bool, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Status == repository.StatusPending, nil
}

func (s *Service) activeItemCount(ctx context.Context, stage tracking.Stage) int {
	items, err := s.catalogs.CatalogForStage(ctx, stage)
	if err != nil {
		return 0
	}
	count := 0
	for _, item := range items {
		if item.Active {
			count++
		}
	}
	return count
}
