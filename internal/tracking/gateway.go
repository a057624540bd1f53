package tracking

import (
	"context"

	"github.com/google/uuid"
)

// RecordStatus classifies what the persistence backend knows about an
// identifier within a stage.
type RecordStatus string

const (
	// StatusFree means no record exists and the identifier is available.
	StatusFree RecordStatus = "free"
	// StatusPending means a partial-progress record exists for the caller.
	StatusPending RecordStatus = "pending"
	// StatusFinalized means the stage is already complete for the identifier.
	StatusFinalized RecordStatus = "finalized"
	// StatusDuplicate means the identifier is in use by another unit of work.
	StatusDuplicate RecordStatus = "duplicate"
	// StatusNotFound means the identifier is absent from the upstream stage.
	StatusNotFound RecordStatus = "not_found"
)

// IdentifierStatus is the backend's answer to an identifier status query.
// Checks and aux fields are only populated for StatusPending.
type IdentifierStatus struct {
	Status   RecordStatus
	RecordID uuid.UUID
	Checks   map[string]bool
	Color    string
	RAL      string
}

// PendingTask summarizes an in-progress record for auto-resume on entry.
type PendingTask struct {
	Stage      Stage
	RecordID   uuid.UUID
	Identifier string
	Color      string
	RAL        string
	DoneCount  int
	TotalCount int
}

// SnapshotResult is a point-in-time read of one pending record.
type SnapshotResult struct {
	Exists   bool
	Snapshot Snapshot
}

// RecordDraft carries the engine's current state across the gateway
// boundary. Checks are keyed by column key, never by raw label.
type RecordDraft struct {
	Identifier string
	Color      string
	RAL        string
	Checks     map[string]bool
}

// Gateway is the persistence backend the reconciliation engine talks to.
// The engine owns no durable state; every create/update/finalize/fetch
// crosses this boundary.
type Gateway interface {
	// FetchCatalog returns the raw checklist catalog for a stage.
	// The engine filters inactive items itself.
	FetchCatalog(ctx context.Context, stage Stage) ([]CatalogItem, error)

	// FetchIdentifierStatus reports what the backend knows about an
	// identifier within a stage, scoped to the requesting user.
	FetchIdentifierStatus(ctx context.Context, stage Stage, identifier string, userID uuid.UUID) (IdentifierStatus, error)

	// FetchUserPending lists the user's in-progress records across stages.
	FetchUserPending(ctx context.Context, userID uuid.UUID) ([]PendingTask, error)

	// FetchSnapshot reads one pending record's checks and aux fields.
	FetchSnapshot(ctx context.Context, stage Stage, recordID uuid.UUID) (SnapshotResult, error)

	// StartRecord creates a record and returns its assigned id.
	StartRecord(ctx context.Context, stage Stage, draft RecordDraft, userID uuid.UUID) (uuid.UUID, error)

	// UpdateRecord patches an existing record with the draft state.
	UpdateRecord(ctx context.Context, stage Stage, recordID uuid.UUID, draft RecordDraft) error

	// FinalizeRecord irreversibly marks a record complete.
	FinalizeRecord(ctx context.Context, stage Stage, recordID uuid.UUID) error
}
