package model

import "time"

// MinOverrideReasonLen is the minimum accepted length for an override
// reason. Overrides bypass every normal guard, so the audit trail
// demands a real explanation.
const MinOverrideReasonLen = 10

// AttendanceOverride is one append-only audit entry. Exactly one entry
// is written per successful override call, carrying the record's state
// immediately before and after the mutation. Entries are never updated
// or deleted.
type AttendanceOverride struct {
	ID           uint64    // attendance_overrides.id
	AttendanceID uint64    // attendance_overrides.attendance_id
	AdminID      uint64    // attendance_overrides.admin_id
	Action       string    // attendance_overrides.action
	Reason       string    // attendance_overrides.reason
	Before       Snapshot  // before_* columns
	After        Snapshot  // after_* columns
	IPAddress    string    // attendance_overrides.ip_address
	CreatedAt    time.Time // attendance_overrides.created_at
}
