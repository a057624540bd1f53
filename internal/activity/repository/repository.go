package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Entry is one audit log row.
type Entry struct {
	ID         int64
	EventType  string
	Stage      string
	Identifier string
	RecordID   *uuid.UUID
	UserID     *uuid.UUID
	UserEmail  string // resolved from users on read, empty on write
	Detail     string
	OccurredAt time.Time
}

func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (event_type, stage, identifier, record_id, user_id, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.EventType, entry.Stage, entry.Identifier, entry.RecordID, entry.UserID, entry.Detail, entry.OccurredAt)
	return err
}

// SortColumn selects which column the activity search orders by. The set
// is a fixed whitelist; raw query input never reaches the ORDER BY clause.
type SortColumn string

const (
	SortByOccurredAt SortColumn = "occurred_at"
	SortByUser       SortColumn = "user"
	SortByStage      SortColumn = "stage"
)

// ParseSortColumn maps the public query parameter values onto the
// whitelist. An empty value defaults to occurred_at; ok is false for
// anything else unknown.
func ParseSortColumn(raw string) (SortColumn, bool) {
	switch raw {
	case "", "createdAt":
		return SortByOccurredAt, true
	case "user":
		return SortByUser, true
	case "stage":
		return SortByStage, true
	default:
		return "", false
	}
}

// SearchFilter narrows the admin activity search.
type SearchFilter struct {
	EventType  string
	Stage      string
	Identifier string
	UserID     *uuid.UUID
	From       *time.Time
	To         *time.Time
	SortBy     SortColumn
	Ascending  bool
	Limit      int
	Offset     int
}

// orderClause renders the whitelisted sort selection. Non-time sorts keep
// occurred_at as the secondary key so same-valued rows stay in event order;
// the id tail makes the order total.
func orderClause(filter SearchFilter) string {
	dir := " DESC"
	if filter.Ascending {
		dir = ""
	}
	switch filter.SortBy {
	case SortByUser:
		return " ORDER BY COALESCE(u.email, '')" + dir + ", a.occurred_at" + dir + ", a.id" + dir
	case SortByStage:
		return " ORDER BY a.stage" + dir + ", a.occurred_at" + dir + ", a.id" + dir
	default:
		return " ORDER BY a.occurred_at" + dir + ", a.id" + dir
	}
}

// Search returns matching entries with the total count. The user email is
// resolved through a join so the log survives account changes.
func (r *Repository) Search(ctx context.Context, filter SearchFilter) ([]Entry, int, error) {
	where := ` WHERE ($1 = '' OR a.event_type = $1)
		AND ($2 = '' OR a.stage = $2)
		AND ($3 = '' OR a.identifier ILIKE '%' || $3 || '%')
		AND ($4::uuid IS NULL OR a.user_id = $4)
		AND ($5::timestamptz IS NULL OR a.occurred_at >= $5)
		AND ($6::timestamptz IS NULL OR a.occurred_at <= $6)`

	args := []interface{}{
		filter.EventType, filter.Stage, filter.Identifier,
		nullable(filter.UserID), nullableTime(filter.From), nullableTime(filter.To),
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM activity_log a`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderClause(filter)

	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.event_type, a.stage, a.identifier, a.record_id, a.user_id,
			COALESCE(u.email, ''), a.detail, a.occurred_at
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id`+where+order+`
		LIMIT $7 OFFSET $8`,
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	return entries, total, err
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.EventType, &entry.Stage, &entry.Identifier,
			&entry.RecordID, &entry.UserID, &entry.UserEmail,
			&entry.Detail, &entry.OccurredAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullable(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
