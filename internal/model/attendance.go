package model

import (
	"fmt"
	"time"
)

// Attendance status values. An attendance record is created in ASSIGNED
// when a participant is approved and only ever moves forward:
//
//	ASSIGNED --check-in--> ACTIVE --check-out--> COMPLETED
//	ASSIGNED --admin-----> ABSENT (terminal)
//
// CHECKED_IN is a legacy label from an earlier two-phase check-in flow.
// No transition produces it anymore, but the check-out guard still accepts
// it so records written under the old flow can complete normally.
const (
	StatusAssigned  = "ASSIGNED"
	StatusCheckedIn = "CHECKED_IN"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusAbsent    = "ABSENT"
)

// Methods recorded on a check-in/check-out, identifying how the
// transition happened.
const (
	MethodQR       = "qr"
	MethodManual   = "manual"
	MethodOverride = "override"
)

// Override actions recorded in the audit trail.
const (
	ActionCheckInOverride  = "CHECK_IN_OVERRIDE"
	ActionCheckOutOverride = "CHECK_OUT_OVERRIDE"
	ActionMarkAbsent       = "MARK_ABSENT"
	ActionStatusChange     = "STATUS_CHANGE"
)

// ValidStatus reports whether s is a recognized attendance status.
func ValidStatus(s string) bool {
	switch s {
	case StatusAssigned, StatusCheckedIn, StatusActive, StatusCompleted, StatusAbsent:
		return true
	}
	return false
}

// ValidOverrideAction reports whether a is a recognized override action.
func ValidOverrideAction(a string) bool {
	switch a {
	case ActionCheckInOverride, ActionCheckOutOverride, ActionMarkAbsent, ActionStatusChange:
		return true
	}
	return false
}

// CheckDetail records one side of an attendance (the check-in or the
// check-out): when it happened, how (qr/manual/override) and which actor
// verified it, if any.
type CheckDetail struct {
	Time       *time.Time // attendance.check_*_time (nullable)
	Method     string     // attendance.check_*_method ('' when unset)
	VerifiedBy *uint64    // attendance.check_*_verified_by (nullable)
}

// Attendance tracks one staff member's progression through one event.
// At most one row exists per (event_id, staff_id); that uniqueness is
// enforced by the database, not here.
type Attendance struct {
	ID         uint64      // attendance.id
	EventID    uint64      // attendance.event_id
	StaffID    uint64      // attendance.staff_id
	RoleID     uint64      // attendance.role_id (snapshot at approval time)
	Status     string      // attendance.status
	CheckIn    CheckDetail // check-in columns
	CheckOut   CheckDetail // check-out columns
	Overridden bool        // set once by any override, never cleared
	Notes      string      // free text, appended to by overrides
	CreatedAt  time.Time   // attendance.created_at
	UpdatedAt  time.Time   // attendance.updated_at
}

// Snapshot is the immutable view of an attendance record captured before
// and after every override for the audit trail.
type Snapshot struct {
	Status   string      `json:"status"`
	CheckIn  CheckDetail `json:"check_in"`
	CheckOut CheckDetail `json:"check_out"`
}

// Snapshot copies the mutable state of the record. Pointer fields are
// duplicated so later mutation of the record cannot leak into a snapshot
// that has already been taken.
func (a *Attendance) Snapshot() Snapshot {
	return Snapshot{
		Status:   a.Status,
		CheckIn:  a.CheckIn.clone(),
		CheckOut: a.CheckOut.clone(),
	}
}

func (d CheckDetail) clone() CheckDetail {
	out := CheckDetail{Method: d.Method}
	if d.Time != nil {
		t := *d.Time
		out.Time = &t
	}
	if d.VerifiedBy != nil {
		v := *d.VerifiedBy
		out.VerifiedBy = &v
	}
	return out
}

// CanCheckIn classifies whether a normal (non-override) check-in may run
// from the record's current status. A nil return means the transition is
// allowed. The distinct errors let handlers give accurate messaging:
// conflicts (already in/complete) are retry-hopeless, ABSENT needs an
// admin, anything else is a plain bad transition.
//
// This is advisory only: the authoritative guard is the conditional
// UPDATE in the repository, which re-checks the status atomically.
func (a *Attendance) CanCheckIn() error {
	switch a.Status {
	case StatusAssigned:
		return nil
	case StatusActive, StatusCheckedIn, StatusCompleted:
		return ErrAlreadyCheckedIn
	case StatusAbsent:
		return ErrAbsentLocked
	default:
		return fmt.Errorf("%w: cannot check in from status %s", ErrInvalidTransition, a.Status)
	}
}

// CanCheckOut classifies whether a normal check-out may run. ACTIVE and
// the legacy CHECKED_IN both qualify; COMPLETED is a conflict; everything
// else means the staff never checked in.
func (a *Attendance) CanCheckOut() error {
	switch a.Status {
	case StatusActive, StatusCheckedIn:
		return nil
	case StatusCompleted:
		return ErrAlreadyCheckedOut
	default:
		return ErrNotCheckedIn
	}
}

// Duration returns the elapsed time between check-in and check-out, or
// false when either end is missing. It is a read-only projection and is
// never stored.
func (a *Attendance) Duration() (time.Duration, bool) {
	if a.CheckIn.Time == nil || a.CheckOut.Time == nil {
		return 0, false
	}
	return a.CheckOut.Time.Sub(*a.CheckIn.Time), true
}

// FormatDuration renders a duration the way the attendance reports show
// it: whole hours plus remaining minutes, e.g. "2 hours 30 minutes".
func FormatDuration(d time.Duration) string {
	total := int(d.Minutes())
	if total < 0 {
		total = 0
	}
	hours := total / 60
	minutes := total % 60
	return fmt.Sprintf("%d hours %d minutes", hours, minutes)
}

// AppendOverrideNote appends the bracketed override reason to the
// record's notes. Notes are accumulated, never replaced, except for
// MARK_ABSENT which sets them directly to the reason.
func (a *Attendance) AppendOverrideNote(reason string) {
	note := fmt.Sprintf("[Override: %s]", reason)
	if a.Notes == "" {
		a.Notes = note
		return
	}
	a.Notes = a.Notes + "\n" + note
}
