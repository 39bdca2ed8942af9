package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// RoleRepo persists event roles. Capacity is the one invariant it owns:
// filled_slots never exceeds capacity, enforced by making the increment
// and the bound check a single conditional UPDATE. A plain read-check-
// write here would over-allocate under concurrent applications.
type RoleRepo struct {
	db *sql.DB
}

// NewRoleRepo returns a RoleRepo bound to the given database.
func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

const roleCols = `id, event_id, role_name, price_cents, capacity, filled_slots, created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (*model.EventRole, error) {
	var er model.EventRole
	err := row.Scan(&er.ID, &er.EventID, &er.RoleName, &er.PriceCents,
		&er.Capacity, &er.FilledSlots, &er.CreatedAt, &er.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &er, nil
}

// Create inserts a new role for an event and returns its ID.
func (r *RoleRepo) Create(ctx context.Context, eventID uint64, name string, priceCents, capacity uint32) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO event_roles (event_id, role_name, price_cents, capacity, filled_slots) VALUES (?, ?, ?, ?, 0)`,
		eventID, name, priceCents, capacity)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetForEvent loads a role and verifies it belongs to the given event.
// A role that exists under a different event reads as not found, which
// is what the apply flow wants for "invalid role for this event".
func (r *RoleRepo) GetForEvent(ctx context.Context, roleID, eventID uint64) (*model.EventRole, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleCols+` FROM event_roles WHERE id = ? AND event_id = ?`, roleID, eventID)
	er, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role %d for event %d: %w", roleID, eventID, model.ErrNotFound)
	}
	return er, err
}

// ListByEvent returns all roles of an event ordered by creation.
func (r *RoleRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventRole, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleCols+` FROM event_roles WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.EventRole, 0)
	for rows.Next() {
		er, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *er)
	}
	return out, rows.Err()
}

// ReserveSlotTx claims one slot of the role, failing with ErrRoleFull
// when none remain. The capacity check and the increment are one
// statement; N callers racing for the last slot get exactly one success.
func (r *RoleRepo) ReserveSlotTx(ctx context.Context, tx *sql.Tx, roleID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE event_roles SET filled_slots = filled_slots + 1 WHERE id = ? AND filled_slots < capacity`,
		roleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM event_roles WHERE id = ?)`, roleID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("role %d: %w", roleID, model.ErrNotFound)
		}
		return model.ErrRoleFull
	}
	return nil
}

// ReleaseSlotTx gives one slot back on reject/withdraw/role change. The
// floor guard keeps a double release from driving the count negative.
func (r *RoleRepo) ReleaseSlotTx(ctx context.Context, tx *sql.Tx, roleID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event_roles SET filled_slots = filled_slots - 1 WHERE id = ? AND filled_slots > 0`,
		roleID)
	return err
}
