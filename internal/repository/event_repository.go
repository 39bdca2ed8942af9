package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// EventRepo is the minimal event directory the attendance core reads:
// status, ownership, time window and the soft-delete flag. Full event
// management is a separate concern; only what gating needs lives here.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventCols = `id, title, created_by, status, starts_at, ends_at, is_deleted, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.CreatedBy, &ev.Status,
		&ev.StartsAt, &ev.EndsAt, &ev.IsDeleted, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ev.StartsAt = ev.StartsAt.UTC()
	ev.EndsAt = ev.EndsAt.UTC()
	return &ev, nil
}

// Create inserts a draft event owned by the given admin.
func (r *EventRepo) Create(ctx context.Context, title string, createdBy uint64, startsAt, endsAt string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, created_by, status, starts_at, ends_at) VALUES (?, ?, ?, ?, ?)`,
		title, createdBy, model.EventDraft, startsAt, endsAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID loads an event. Soft-deleted events read as not found so no
// caller ever has to remember to check the flag.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = ? AND is_deleted = 0`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, model.ErrNotFound)
	}
	return ev, err
}

// GetOwned loads an event and enforces that ownerID created it,
// returning ErrPermissionDenied otherwise. Most admin operations start
// here.
func (r *EventRepo) GetOwned(ctx context.Context, id, ownerID uint64) (*model.Event, error) {
	ev, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.CreatedBy != ownerID {
		return nil, model.ErrPermissionDenied
	}
	return ev, nil
}

// UpdateStatus moves an owned event through its lifecycle (publish,
// start, complete, cancel). Ownership is checked in the same statement.
func (r *EventRepo) UpdateStatus(ctx context.Context, id, ownerID uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = ? WHERE id = ? AND created_by = ? AND is_deleted = 0`,
		status, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetOwned(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// ListByOwner returns an admin's events, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE created_by = ? AND is_deleted = 0 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}
