package model

import "time"

// Participant application statuses.
const (
	ParticipantApplied   = "applied"
	ParticipantApproved  = "approved"
	ParticipantRejected  = "rejected"
	ParticipantCancelled = "cancelled"
)

// Participant is one staff member's application to one role of one
// event. At most one participant row exists per (event_id, staff_id);
// the database enforces that with a unique index.
//
// RoleName and RolePriceCents are snapshots taken at application time so
// later role edits do not rewrite history or affect pay.
type Participant struct {
	ID             uint64    // participants.id
	EventID        uint64    // participants.event_id
	StaffID        uint64    // participants.staff_id
	RoleID         uint64    // participants.role_id
	RoleName       string    // participants.role_name (snapshot)
	RolePriceCents uint32    // participants.role_price_cents (snapshot)
	Status         string    // participants.status
	AppliedAt      time.Time // participants.applied_at
	UpdatedAt      time.Time // participants.updated_at
}
