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

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Item is one checklist catalog row.
type Item struct {
	ID        uuid.UUID
	Stage     string
	Label     string
	Section   string
	Position  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListByStage returns every item of a stage, active or not, in position order.
func (r *Repository) ListByStage(ctx context.Context, stage string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, stage, label, section, position, active, created_at, updated_at
		FROM checklist_items
		WHERE stage = $1
		ORDER BY position, created_at
	`, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `
		SELECT id, stage, label, section, position, active, created_at, updated_at
		FROM checklist_items WHERE id = $1
	`, id).Scan(
		&item.ID, &item.Stage, &item.Label, &item.Section,
		&item.Position, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return item, err
}

func (r *Repository) Create(ctx context.Context, stage, label, section string, position int) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `
		INSERT INTO checklist_items (stage, label, section, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, stage, label, section, position, active, created_at, updated_at
	`, stage, label, section, position).Scan(
		&item.ID, &item.Stage, &item.Label, &item.Section,
		&item.Position, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, label, section string, position int, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE checklist_items
		SET label = $2, section = $3, position = $4, active = $5, updated_at = now()
		WHERE id = $1
	`, id, label, section, position, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate retires an item. Rows are never deleted so historical records
// keep resolving their column keys.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE checklist_items SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountByStage(ctx context.Context, stage string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM checklist_items WHERE stage = $1
	`, stage).Scan(&count)
	return count, err
}

// BulkInsert loads seed items inside one transaction.
func (r *Repository) BulkInsert(ctx context.Context, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO checklist_items (stage, label, section, position)
			VALUES ($1, $2, $3, $4)
		`, item.Stage, item.Label, item.Section, item.Position); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanItems(rows pgx.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.Stage, &item.Label, &item.Section,
			&item.Position, &item.Active, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
