package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// ParticipantRepo persists staff applications. Status changes are
// conditional updates keyed on the expected current status, and the
// unique (event_id, staff_id) index backs the one-application-per-pair
// invariant.
type ParticipantRepo struct {
	db *sql.DB
}

// NewParticipantRepo returns a ParticipantRepo bound to the given database.
func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

// DB exposes the handle so handlers can open transactions that span
// participant, role and attendance writes.
func (r *ParticipantRepo) DB() *sql.DB { return r.db }

const participantCols = `id, event_id, staff_id, role_id, role_name, role_price_cents, status, applied_at, updated_at`

func scanParticipant(row interface{ Scan(...any) error }) (*model.Participant, error) {
	var p model.Participant
	err := row.Scan(&p.ID, &p.EventID, &p.StaffID, &p.RoleID, &p.RoleName,
		&p.RolePriceCents, &p.Status, &p.AppliedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID loads one participant.
func (r *ParticipantRepo) GetByID(ctx context.Context, id uint64) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantCols+` FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %d: %w", id, model.ErrNotFound)
	}
	return p, err
}

// GetByPair loads the application for one (event, staff) pair.
func (r *ParticipantRepo) GetByPair(ctx context.Context, eventID, staffID uint64) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantCols+` FROM participants WHERE event_id = ? AND staff_id = ?`,
		eventID, staffID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application for event %d staff %d: %w", eventID, staffID, model.ErrNotFound)
	}
	return p, err
}

// HasApproved reports whether the staff member holds an approved
// application for the event. The check-in path calls this before
// touching the state machine.
func (r *ParticipantRepo) HasApproved(ctx context.Context, eventID, staffID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE event_id = ? AND staff_id = ? AND status = ?)`,
		eventID, staffID, model.ParticipantApproved).Scan(&exists)
	return exists, err
}

// CreateTx inserts an application in 'applied' status with the role's
// name and price snapshotted. A duplicate pair maps to ErrAlreadyApplied.
// Callers reserve the role slot in the same transaction, so the two
// writes commit as one logical unit.
func (r *ParticipantRepo) CreateTx(ctx context.Context, tx *sql.Tx, eventID, staffID uint64, role *model.EventRole) (*model.Participant, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO participants (event_id, staff_id, role_id, role_name, role_price_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		eventID, staffID, role.ID, role.RoleName, role.PriceCents, model.ParticipantApplied)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, model.ErrAlreadyApplied
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+participantCols+` FROM participants WHERE id = ?`, id)
	return scanParticipant(row)
}

// TransitionTx moves a participant from one status to another as a
// compare-and-swap. Zero matched rows means the record was not in the
// expected status; the caller classifies that with the loaded record.
func (r *ParticipantRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE participants SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("participant %d not in status %s: %w", id, from, model.ErrInvalidState)
	}
	return nil
}

// CancelTx sets the application cancelled unless it is already in a
// terminal rejected/cancelled state.
func (r *ParticipantRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE participants SET status = ? WHERE id = ? AND status NOT IN (?, ?)`,
		model.ParticipantCancelled, id, model.ParticipantCancelled, model.ParticipantRejected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("application already cancelled or rejected: %w", model.ErrInvalidState)
	}
	return nil
}

// UpdateRoleTx rewrites the application's role and its snapshot fields.
// Only legal while the application is still 'applied'; after approval
// the snapshot is history.
func (r *ParticipantRepo) UpdateRoleTx(ctx context.Context, tx *sql.Tx, id uint64, role *model.EventRole) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE participants SET role_id = ?, role_name = ?, role_price_cents = ?
		  WHERE id = ? AND status = ?`,
		role.ID, role.RoleName, role.PriceCents, id, model.ParticipantApplied)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("role can only change before approval: %w", model.ErrInvalidState)
	}
	return nil
}

// ParticipantRow is the admin listing entry: application plus staff
// identity.
type ParticipantRow struct {
	Participant model.Participant `json:"participant"`
	StaffName   string            `json:"staff_name"`
	StaffEmail  string            `json:"staff_email"`
}

// ListByEvent returns all applications for an event with staff details,
// newest first.
func (r *ParticipantRepo) ListByEvent(ctx context.Context, eventID uint64) ([]ParticipantRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.event_id, p.staff_id, p.role_id, p.role_name, p.role_price_cents,
		        p.status, p.applied_at, p.updated_at, u.full_name, u.email
		   FROM participants p
		   JOIN users u ON u.id = p.staff_id
		  WHERE p.event_id = ?
		  ORDER BY p.applied_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ParticipantRow, 0)
	for rows.Next() {
		var pr ParticipantRow
		p := &pr.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.StaffID, &p.RoleID, &p.RoleName,
			&p.RolePriceCents, &p.Status, &p.AppliedAt, &p.UpdatedAt,
			&pr.StaffName, &pr.StaffEmail); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// CountApproved returns the number of approved participants for an
// event; the live stats view needs it as the attendance denominator.
func (r *ParticipantRepo) CountApproved(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = ? AND status = ?`,
		eventID, model.ParticipantApproved).Scan(&n)
	return n, err
}
