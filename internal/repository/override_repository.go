package repository

import (
	"context"
	"database/sql"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// OverrideRepo is the append-only audit trail for admin overrides.
// Entries carry the full before/after snapshot of the attendance record
// and are written in the same transaction as the attendance mutation,
// so an override can never land without its audit entry or vice versa.
// There is no update or delete path on this table by design.
type OverrideRepo struct {
	db *sql.DB
}

// NewOverrideRepo returns an OverrideRepo bound to the given database.
func NewOverrideRepo(db *sql.DB) *OverrideRepo { return &OverrideRepo{db: db} }

const overrideCols = `id, attendance_id, admin_id, action, reason,
	before_status, before_check_in_time, before_check_in_method, before_check_in_verified_by,
	before_check_out_time, before_check_out_method, before_check_out_verified_by,
	after_status, after_check_in_time, after_check_in_method, after_check_in_verified_by,
	after_check_out_time, after_check_out_method, after_check_out_verified_by,
	ip_address, created_at`

// CreateTx appends one audit entry inside the caller's transaction.
func (r *OverrideRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.AttendanceOverride) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO attendance_overrides (
			attendance_id, admin_id, action, reason,
			before_status, before_check_in_time, before_check_in_method, before_check_in_verified_by,
			before_check_out_time, before_check_out_method, before_check_out_verified_by,
			after_status, after_check_in_time, after_check_in_method, after_check_in_verified_by,
			after_check_out_time, after_check_out_method, after_check_out_verified_by,
			ip_address
		) VALUES (?,?,?,?, ?,?,?,?, ?,?,?, ?,?,?,?, ?,?,?, ?)`,
		o.AttendanceID, o.AdminID, o.Action, o.Reason,
		o.Before.Status,
		nullableTime(o.Before.CheckIn.Time), nullableStr(o.Before.CheckIn.Method), nullableID(o.Before.CheckIn.VerifiedBy),
		nullableTime(o.Before.CheckOut.Time), nullableStr(o.Before.CheckOut.Method), nullableID(o.Before.CheckOut.VerifiedBy),
		o.After.Status,
		nullableTime(o.After.CheckIn.Time), nullableStr(o.After.CheckIn.Method), nullableID(o.After.CheckIn.VerifiedBy),
		nullableTime(o.After.CheckOut.Time), nullableStr(o.After.CheckOut.Method), nullableID(o.After.CheckOut.VerifiedBy),
		o.IPAddress)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

func scanOverride(rows *sql.Rows) (*model.AttendanceOverride, error) {
	var (
		o                          model.AttendanceOverride
		bCiT, bCoT, aCiT, aCoT     sql.NullTime
		bCiM, bCoM, aCiM, aCoM     sql.NullString
		bCiBy, bCoBy, aCiBy, aCoBy sql.NullInt64
		ip                         sql.NullString
	)
	err := rows.Scan(&o.ID, &o.AttendanceID, &o.AdminID, &o.Action, &o.Reason,
		&o.Before.Status, &bCiT, &bCiM, &bCiBy, &bCoT, &bCoM, &bCoBy,
		&o.After.Status, &aCiT, &aCiM, &aCiBy, &aCoT, &aCoM, &aCoBy,
		&ip, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	fill := func(d *model.CheckDetail, t sql.NullTime, m sql.NullString, by sql.NullInt64) {
		if t.Valid {
			tt := t.Time.UTC()
			d.Time = &tt
		}
		if m.Valid {
			d.Method = m.String
		}
		if by.Valid {
			v := uint64(by.Int64)
			d.VerifiedBy = &v
		}
	}
	fill(&o.Before.CheckIn, bCiT, bCiM, bCiBy)
	fill(&o.Before.CheckOut, bCoT, bCoM, bCoBy)
	fill(&o.After.CheckIn, aCiT, aCiM, aCiBy)
	fill(&o.After.CheckOut, aCoT, aCoM, aCoBy)
	if ip.Valid {
		o.IPAddress = ip.String
	}
	return &o, nil
}

// HistoryForAttendance returns every override applied to one attendance
// record, newest first.
func (r *OverrideRepo) HistoryForAttendance(ctx context.Context, attendanceID uint64) ([]model.AttendanceOverride, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+overrideCols+` FROM attendance_overrides WHERE attendance_id = ? ORDER BY created_at DESC, id DESC`,
		attendanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverrides(rows)
}

// HistoryForAdmin returns the most recent overrides performed by one
// admin, newest first, bounded by limit.
func (r *OverrideRepo) HistoryForAdmin(ctx context.Context, adminID uint64, limit int) ([]model.AttendanceOverride, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+overrideCols+` FROM attendance_overrides WHERE admin_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		adminID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOverrides(rows)
}

func collectOverrides(rows *sql.Rows) ([]model.AttendanceOverride, error) {
	out := make([]model.AttendanceOverride, 0)
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
