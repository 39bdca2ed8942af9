package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// QRCodeRepo persists QR token issuances. The at-most-one-active-per-
// event invariant is maintained by deactivating every prior active row
// and inserting the new one inside a single transaction (last writer
// wins, no optimistic lock). Rows are deactivated, never deleted.
type QRCodeRepo struct {
	db *sql.DB
}

// NewQRCodeRepo returns a QRCodeRepo bound to the given database.
func NewQRCodeRepo(db *sql.DB) *QRCodeRepo { return &QRCodeRepo{db: db} }

const qrCols = `id, event_id, token, expires_at, created_by, is_active, created_at`

func scanQR(row interface{ Scan(...any) error }) (*model.QRCode, error) {
	var q model.QRCode
	err := row.Scan(&q.ID, &q.EventID, &q.Token, &q.ExpiresAt, &q.CreatedBy, &q.IsActive, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.ExpiresAt = q.ExpiresAt.UTC()
	return &q, nil
}

// Issue stores a freshly signed token as the event's single active QR
// code. Any previously active codes for the event are deactivated in
// the same transaction, so a scan can never validate against two.
func (r *QRCodeRepo) Issue(ctx context.Context, eventID uint64, token string, expiresAt time.Time, createdBy uint64) (*model.QRCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE qr_codes SET is_active = 0 WHERE event_id = ? AND is_active = 1`, eventID); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO qr_codes (event_id, token, expires_at, created_by, is_active) VALUES (?, ?, ?, ?, 1)`,
		eventID, token, expiresAt.UTC(), createdBy)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+qrCols+` FROM qr_codes WHERE id = ?`, id)
	q, err := scanQR(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return q, nil
}

// GetByID loads one issuance record.
func (r *QRCodeRepo) GetByID(ctx context.Context, id uint64) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+qrCols+` FROM qr_codes WHERE id = ?`, id)
	q, err := scanQR(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("qr code %d: %w", id, model.ErrNotFound)
	}
	return q, err
}

// GetActiveByEvent returns the event's current active code, if any.
func (r *QRCodeRepo) GetActiveByEvent(ctx context.Context, eventID uint64) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+qrCols+` FROM qr_codes WHERE event_id = ? AND is_active = 1 ORDER BY id DESC LIMIT 1`,
		eventID)
	q, err := scanQR(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active qr code for event %d: %w", eventID, model.ErrNotFound)
	}
	return q, err
}

// GetActiveByToken looks up the persisted record for a presented token
// string. Only active rows match: a token whose row was deactivated is
// administratively revoked no matter what its signature says, and scan
// validation must treat the lookup miss as InvalidToken.
func (r *QRCodeRepo) GetActiveByToken(ctx context.Context, token string) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+qrCols+` FROM qr_codes WHERE token = ? AND is_active = 1 LIMIT 1`, token)
	q, err := scanQR(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrInvalidToken
	}
	return q, err
}

// Deactivate revokes an active code. Deactivating an already inactive
// code fails rather than no-ops, mirroring the admin surface: the
// caller asked to change something that was not there to change.
func (r *QRCodeRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE qr_codes SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("qr code already inactive: %w", model.ErrInvalidState)
	}
	return nil
}
