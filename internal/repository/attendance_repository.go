package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// AttendanceRepo persists attendance records. Every state transition is
// a single conditional UPDATE whose WHERE clause re-states the
// precondition, so two racing scans of the same QR code cannot both
// succeed: the loser's update matches zero rows and is classified into
// the same error a failed precondition read would have produced. No
// additional locking is needed.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo returns an AttendanceRepo bound to the given database.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning attendance, participant and audit writes.
func (r *AttendanceRepo) DB() *sql.DB { return r.db }

const attendanceCols = `id, event_id, staff_id, role_id, status,
	check_in_time, check_in_method, check_in_verified_by,
	check_out_time, check_out_method, check_out_verified_by,
	overridden, notes, created_at, updated_at`

func scanAttendance(row interface{ Scan(...any) error }) (*model.Attendance, error) {
	var (
		a        model.Attendance
		ciTime   sql.NullTime
		ciMethod sql.NullString
		ciBy     sql.NullInt64
		coTime   sql.NullTime
		coMethod sql.NullString
		coBy     sql.NullInt64
		notes    sql.NullString
	)
	err := row.Scan(&a.ID, &a.EventID, &a.StaffID, &a.RoleID, &a.Status,
		&ciTime, &ciMethod, &ciBy,
		&coTime, &coMethod, &coBy,
		&a.Overridden, &notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ciTime.Valid {
		t := ciTime.Time.UTC()
		a.CheckIn.Time = &t
	}
	if ciMethod.Valid {
		a.CheckIn.Method = ciMethod.String
	}
	if ciBy.Valid {
		v := uint64(ciBy.Int64)
		a.CheckIn.VerifiedBy = &v
	}
	if coTime.Valid {
		t := coTime.Time.UTC()
		a.CheckOut.Time = &t
	}
	if coMethod.Valid {
		a.CheckOut.Method = coMethod.String
	}
	if coBy.Valid {
		v := uint64(coBy.Int64)
		a.CheckOut.VerifiedBy = &v
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	return &a, nil
}

// GetByID loads one attendance record. Returns model.ErrNotFound when
// no row exists.
func (r *AttendanceRepo) GetByID(ctx context.Context, id uint64) (*model.Attendance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attendanceCols+` FROM attendance WHERE id = ?`, id)
	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attendance %d: %w", id, model.ErrNotFound)
	}
	return a, err
}

// GetByPair loads the record for one (event, staff) pair.
func (r *AttendanceRepo) GetByPair(ctx context.Context, eventID, staffID uint64) (*model.Attendance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attendanceCols+` FROM attendance WHERE event_id = ? AND staff_id = ?`,
		eventID, staffID)
	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attendance for event %d staff %d: %w", eventID, staffID, model.ErrNotFound)
	}
	return a, err
}

// CreateAssignedTx inserts a fresh ASSIGNED record for the pair inside
// the caller's transaction. A duplicate-key outcome is treated as
// success and the existing record is returned, which makes approval
// idempotent against the unique (event_id, staff_id) index.
func (r *AttendanceRepo) CreateAssignedTx(ctx context.Context, tx *sql.Tx, eventID, staffID, roleID uint64) (*model.Attendance, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO attendance (event_id, staff_id, role_id, status) VALUES (?, ?, ?, ?)`,
		eventID, staffID, roleID, model.StatusAssigned)
	if err != nil {
		if isDuplicateKey(err) {
			row := tx.QueryRowContext(ctx,
				`SELECT `+attendanceCols+` FROM attendance WHERE event_id = ? AND staff_id = ?`,
				eventID, staffID)
			return scanAttendance(row)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+attendanceCols+` FROM attendance WHERE id = ?`, id)
	return scanAttendance(row)
}

// CheckIn transitions ASSIGNED -> ACTIVE in one compare-and-swap. When
// the update matches no row the current status is re-read and
// classified, so a racing double scan surfaces as ErrAlreadyCheckedIn
// rather than a silent lost update.
func (r *AttendanceRepo) CheckIn(ctx context.Context, id uint64, method string, verifiedBy *uint64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance
		    SET status = ?, check_in_time = ?, check_in_method = ?, check_in_verified_by = ?
		  WHERE id = ? AND status = ?`,
		model.StatusActive, now.UTC(), method, nullableID(verifiedBy), id, model.StatusAssigned)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.classifyFailedCheckIn(ctx, id)
	}
	return nil
}

// CheckOut transitions ACTIVE (or the legacy CHECKED_IN) -> COMPLETED
// atomically, mirroring CheckIn.
func (r *AttendanceRepo) CheckOut(ctx context.Context, id uint64, method string, verifiedBy *uint64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE attendance
		    SET status = ?, check_out_time = ?, check_out_method = ?, check_out_verified_by = ?
		  WHERE id = ? AND status IN (?, ?)`,
		model.StatusCompleted, now.UTC(), method, nullableID(verifiedBy),
		id, model.StatusActive, model.StatusCheckedIn)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.classifyFailedCheckOut(ctx, id)
	}
	return nil
}

func (r *AttendanceRepo) classifyFailedCheckIn(ctx context.Context, id uint64) error {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.CanCheckIn(); err != nil {
		return err
	}
	// Precondition holds on re-read yet the update matched nothing:
	// another writer won between the two statements. Report it as the
	// conflict the loser of the race deserves.
	return model.ErrAlreadyCheckedIn
}

func (r *AttendanceRepo) classifyFailedCheckOut(ctx context.Context, id uint64) error {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.CanCheckOut(); err != nil {
		return err
	}
	return model.ErrAlreadyCheckedOut
}

// MarkAbsentTx forces the record to ABSENT with the given note. The
// transition is unconditional by design: the admin path and the
// withdrawal side effect both need it regardless of current state.
// RBAC is the caller's responsibility.
func (r *AttendanceRepo) MarkAbsentTx(ctx context.Context, tx *sql.Tx, id uint64, notes string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE attendance SET status = ?, notes = ?, overridden = 1 WHERE id = ?`,
		model.StatusAbsent, notes, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows when values are unchanged;
		// verify existence before calling it missing.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SaveOverrideTx writes the full mutable state of an override-modified
// record inside the caller's transaction. The override engine bypasses
// the CAS guards on purpose; atomicity with the audit entry comes from
// sharing the transaction.
func (r *AttendanceRepo) SaveOverrideTx(ctx context.Context, tx *sql.Tx, a *model.Attendance) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE attendance
		    SET status = ?,
		        check_in_time = ?, check_in_method = ?, check_in_verified_by = ?,
		        check_out_time = ?, check_out_method = ?, check_out_verified_by = ?,
		        overridden = ?, notes = ?
		  WHERE id = ?`,
		a.Status,
		nullableTime(a.CheckIn.Time), nullableStr(a.CheckIn.Method), nullableID(a.CheckIn.VerifiedBy),
		nullableTime(a.CheckOut.Time), nullableStr(a.CheckOut.Method), nullableID(a.CheckOut.VerifiedBy),
		a.Overridden, a.Notes, a.ID)
	return err
}

// AttendanceRow is the admin detail listing entry: the record joined
// with the staff member's identity and role snapshot.
type AttendanceRow struct {
	Attendance model.Attendance `json:"attendance"`
	StaffName  string           `json:"staff_name"`
	StaffEmail string           `json:"staff_email"`
	RoleName   string           `json:"role_name"`
}

// ListByEvent returns attendance rows for one event, optionally
// filtered by status, newest first, with limit/offset paging.
func (r *AttendanceRepo) ListByEvent(ctx context.Context, eventID uint64, status string, limit, offset int) ([]AttendanceRow, error) {
	q := `SELECT a.id, a.event_id, a.staff_id, a.role_id, a.status,
	             a.check_in_time, a.check_in_method, a.check_in_verified_by,
	             a.check_out_time, a.check_out_method, a.check_out_verified_by,
	             a.overridden, a.notes, a.created_at, a.updated_at,
	             u.full_name, u.email, er.role_name
	        FROM attendance a
	        JOIN users u ON u.id = a.staff_id
	        JOIN event_roles er ON er.id = a.role_id
	       WHERE a.event_id = ?`
	args := []any{eventID}
	if status != "" {
		q += ` AND a.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY a.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AttendanceRow, 0)
	for rows.Next() {
		var (
			ar       AttendanceRow
			ciTime   sql.NullTime
			ciMethod sql.NullString
			ciBy     sql.NullInt64
			coTime   sql.NullTime
			coMethod sql.NullString
			coBy     sql.NullInt64
			notes    sql.NullString
		)
		a := &ar.Attendance
		if err := rows.Scan(&a.ID, &a.EventID, &a.StaffID, &a.RoleID, &a.Status,
			&ciTime, &ciMethod, &ciBy, &coTime, &coMethod, &coBy,
			&a.Overridden, &notes, &a.CreatedAt, &a.UpdatedAt,
			&ar.StaffName, &ar.StaffEmail, &ar.RoleName); err != nil {
			return nil, err
		}
		if ciTime.Valid {
			t := ciTime.Time.UTC()
			a.CheckIn.Time = &t
		}
		if ciMethod.Valid {
			a.CheckIn.Method = ciMethod.String
		}
		if ciBy.Valid {
			v := uint64(ciBy.Int64)
			a.CheckIn.VerifiedBy = &v
		}
		if coTime.Valid {
			t := coTime.Time.UTC()
			a.CheckOut.Time = &t
		}
		if coMethod.Valid {
			a.CheckOut.Method = coMethod.String
		}
		if coBy.Valid {
			v := uint64(coBy.Int64)
			a.CheckOut.VerifiedBy = &v
		}
		if notes.Valid {
			a.Notes = notes.String
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status record counts for one event.
func (r *AttendanceRepo) CountByStatus(ctx context.Context, eventID uint64) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM attendance WHERE event_id = ? GROUP BY status`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CompletedRow feeds the payment calculator: one COMPLETED attendance
// with its check times and the price snapshotted at application time.
type CompletedRow struct {
	AttendanceID   uint64     `json:"attendance_id"`
	StaffID        uint64     `json:"staff_id"`
	RoleName       string     `json:"role_name"`
	RolePriceCents uint32     `json:"role_price_cents"`
	CheckInTime    *time.Time `json:"check_in_time"`
	CheckOutTime   *time.Time `json:"check_out_time"`
}

// CompletedForEvent lists completed attendance with pay-relevant fields.
// The price comes from the participant snapshot, not the live role row,
// so later role edits never change what was earned.
func (r *AttendanceRepo) CompletedForEvent(ctx context.Context, eventID uint64) ([]CompletedRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.staff_id, p.role_name, p.role_price_cents, a.check_in_time, a.check_out_time
		   FROM attendance a
		   JOIN participants p ON p.event_id = a.event_id AND p.staff_id = a.staff_id
		  WHERE a.event_id = ? AND a.status = ?
		  ORDER BY a.check_out_time`,
		eventID, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CompletedRow, 0)
	for rows.Next() {
		var (
			cr     CompletedRow
			ciTime sql.NullTime
			coTime sql.NullTime
		)
		if err := rows.Scan(&cr.AttendanceID, &cr.StaffID, &cr.RoleName, &cr.RolePriceCents, &ciTime, &coTime); err != nil {
			return nil, err
		}
		if ciTime.Valid {
			t := ciTime.Time.UTC()
			cr.CheckInTime = &t
		}
		if coTime.Valid {
			t := coTime.Time.UTC()
			cr.CheckOutTime = &t
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func nullableID(v *uint64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
