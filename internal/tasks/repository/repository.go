package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")
var ErrAlreadyFinalized = errors.New("record already finalized")

// Record statuses. A record is created pending and can only move to
// finalized, never back.
const (
	StatusPending   = "pending"
	StatusFinalized = "finalized"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record is one stage task for one identifier.
type Record struct {
	ID          uuid.UUID
	Stage       string
	Identifier  string
	Color       string
	RAL         string
	Checks      map[string]bool
	Status      string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
}

const recordColumns = `
	id, stage, identifier, color, ral, checks, status,
	created_by, created_at, updated_at, finalized_at
`

func (r *Repository) Create(ctx context.Context, stage, identifier, color, ral string, checks map[string]bool, createdBy uuid.UUID) (Record, error) {
	if checks == nil {
		checks = map[string]bool{}
	}
	return r.scanRecord(r.pool.QueryRow(ctx, `
		INSERT INTO task_records (stage, identifier, color, ral, checks, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+recordColumns,
		stage, identifier, color, ral, checks, createdBy,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	return r.scanRecord(r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM task_records WHERE id = $1
	`, id))
}

// Update patches a pending record. Finalized records are immutable.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, identifier, color, ral string, checks map[string]bool) error {
	if checks == nil {
		checks = map[string]bool{}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE task_records
		SET identifier = $2, color = $3, ral = $4, checks = $5, updated_at = now()
		WHERE id = $1 AND status = $6
	`, id, identifier, color, ral, checks, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// Finalize flips a pending record to finalized. The status guard in the
// WHERE clause makes the transition irreversible and idempotent-safe under
// concurrent finalize attempts.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE task_records
		SET status = $2, finalized_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, StatusFinalized, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// FindByStageIdentifier returns all records of an identifier within a
// stage, newest first.
func (r *Repository) FindByStageIdentifier(ctx context.Context, stage, identifier string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM task_records
		WHERE stage = $1 AND identifier = $2
		ORDER BY created_at DESC
	`, stage, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// HasFinalized reports whether the identifier has a finalized record in the
// stage. Used for upstream-presence checks.
func (r *Repository) HasFinalized(ctx context.Context, stage, identifier string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM task_records
			WHERE stage = $1 AND identifier = $2 AND status = $3
		)
	`, stage, identifier, StatusFinalized).Scan(&exists)
	return exists, err
}

// ListPendingByUser returns the user's open records across all stages,
// oldest first so the earliest started work is resumed first.
func (r *Repository) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM task_records
		WHERE created_by = $1 AND status = $2
		ORDER BY created_at
	`, userID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Stage      string
	Status     string
	Identifier string
	CreatedBy  *uuid.UUID
	Limit      int
	Offset     int
}

// List returns records for the admin view with total count for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	where := ` WHERE ($1 = '' OR stage = $1)
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR identifier ILIKE '%' || $3 || '%')
		AND ($4::uuid IS NULL OR created_by = $4)`

	var total int
	var createdBy interface{}
	if filter.CreatedBy != nil {
		createdBy = *filter.CreatedBy
	}
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM task_records`+where,
		filter.Stage, filter.Status, filter.Identifier, createdBy,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM task_records`+where+`
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`,
		filter.Stage, filter.Status, filter.Identifier, createdBy, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	return records, total, err
}

// classifyMiss distinguishes a missing record from a finalized one after a
// guarded update matched no rows.
func (r *Repository) classifyMiss(ctx context.Context, id uuid.UUID) error {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if record.Status == StatusFinalized {
		return ErrAlreadyFinalized
	}
	return ErrNotFound
}

func (r *Repository) scanRecord(row pgx.Row) (Record, error) {
	var record Record
	err := row.Scan(
		&record.ID, &record.Stage, &record.Identifier, &record.Color, &record.RAL,
		&record.Checks, &record.Status, &record.CreatedBy,
		&record.CreatedAt, &record.UpdatedAt, &record.FinalizedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return record, err
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID, &record.Stage, &record.Identifier, &record.Color, &record.RAL,
			&record.Checks, &record.Status, &record.CreatedBy,
			&record.CreatedAt, &record.UpdatedAt, &record.FinalizedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
