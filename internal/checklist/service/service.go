package service

import (
	"context"
	"errors"
	"os"

	"factory_portal_backend/internal/checklist/repository"
	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/apperr"
	"factory_portal_backend/platform/logger"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CatalogForStage returns the raw catalog rows the reconciliation engine
// consumes. Inactive items are included; the engine filters them itself.
func (s *Service) CatalogForStage(ctx context.Context, stage tracking.Stage) ([]tracking.CatalogItem, error) {
	rows, err := s.repo.ListByStage(ctx, string(stage))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "loading checklist failed", err)
	}

	items := make([]tracking.CatalogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, tracking.CatalogItem{
			Label:   row.Label,
			Section: row.Section,
			Active:  row.Active,
		})
	}
	return items, nil
}

// ListItems returns the full catalog rows for the admin screens.
func (s *Service) ListItems(ctx context.Context, stage tracking.Stage) ([]repository.Item, error) {
	return s.repo.ListByStage(ctx, string(stage))
}

// CreateItem adds a checklist item after checking its label maps to a
// column key no other active item of the stage already uses.
func (s *Service) CreateItem(ctx context.Context, stage tracking.Stage, label, section string, position int) (repository.Item, error) {
	if err := s.checkColumnKey(ctx, stage, label, uuid.Nil); err != nil {
		return repository.Item{}, err
	}
	if section == "" {
		profile, err := tracking.ProfileFor(stage)
		if err != nil {
			return repository.Item{}, err
		}
		section = profile.DefaultSection
	}
	return s.repo.Create(ctx, string(stage), label, section, position)
}

// UpdateItem edits a checklist item, re-validating the column key when the
// label changes.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, label, section string, position int, active bool) error {
	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("checklist item not found")
	}
	if err != nil {
		return err
	}

	if active && label != existing.Label {
		if err := s.checkColumnKey(ctx, tracking.Stage(existing.Stage), label, id); err != nil {
			return err
		}
	}

	err = s.repo.Update(ctx, id, label, section, position, active)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("checklist item not found")
	}
	return err
}

// DeactivateItem retires an item from the catalog.
func (s *Service) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Deactivate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("checklist item not found")
	}
	return err
}

func (s *Service) checkColumnKey(ctx context.Context, stage tracking.Stage, label string, selfID uuid.UUID) error {
	key := tracking.ColumnKey(label)
	if key == "" {
		return apperr.Validation("label produces an empty column key")
	}

	rows, err := s.repo.ListByStage(ctx, string(stage))
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.ID == selfID || !row.Active {
			continue
		}
		if tracking.ColumnKey(row.Label) == key {
			return apperr.Conflict("another item already maps to column key " + key)
		}
	}
	return nil
}

// =============================================================================
// Seeding
// =============================================================================

type seedFile struct {
	Stages map[string][]seedSection `yaml:"stages"`
}

type seedSection struct {
	Section string   `yaml:"section"`
	Items   []string `yaml:"items"`
}

// SeedFromFile loads the YAML checklist seed for every stage that has no
// items yet. Stages with existing rows are left alone, so the seed is safe
// to run on every boot.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("checklist seed file missing, skipping", "path", path)
			return nil
		}
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return apperr.Wrap(apperr.KindInternal, "parsing checklist seed failed", err)
	}

	for rawStage, sections := range seed.Stages {
		stage, err := tracking.ParseStage(rawStage)
		if err != nil {
			return apperr.Validation("checklist seed references unknown stage " + rawStage)
		}

		count, err := s.repo.CountByStage(ctx, string(stage))
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		var items []repository.Item
		position := 0
		for _, section := range sections {
			for _, label := range section.Items {
				items = append(items, repository.Item{
					Stage:    string(stage),
					Label:    label,
					Section:  section.Section,
					Position: position,
				})
				position++
			}
		}

		// The seed must honor the same collision rule as the admin API.
		seen := make(map[string]string, len(items))
		for _, item := range items {
			key := tracking.ColumnKey(item.Label)
			if other, dup := seen[key]; dup {
				return apperr.Validation("checklist seed labels collide: " + item.Label + " and " + other)
			}
			seen[key] = item.Label
		}

		if err := s.repo.BulkInsert(ctx, items); err != nil {
			return err
		}
		s.log.Info("checklist seeded", "stage", string(stage), "items", len(items))
	}
	return nil
}
