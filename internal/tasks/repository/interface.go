package repository

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository defines the interface for task record data operations.
// This allows services to depend on an abstraction rather than concrete implementation,
// improving testability and modularity.
type RecordRepository interface {
	// Record lifecycle
	Create(ctx context.Context, stage, identifier, color, ral string, checks map[string]bool, createdBy uuid.UUID) (Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	Update(ctx context.Context, id uuid.UUID, identifier, color, ral string, checks map[string]bool) error
	Finalize(ctx context.Context, id uuid.UUID) error

	// Status and resume lookups
	FindByStageIdentifier(ctx context.Context, stage, identifier string) ([]Record, error)
	HasFinalized(ctx context.Context, stage, identifier string) (bool, error)
	ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]Record, error)

	// Admin listing
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
}

// Ensure Repository implements RecordRepository
var _ RecordRepository = (*Repository)(nil)
