package model

import "time"

// Event statuses. The attendance core only gates on published and
// in_progress; the rest exist so the directory can model the full
// lifecycle.
const (
	EventDraft      = "draft"
	EventPublished  = "published"
	EventInProgress = "in_progress"
	EventCompleted  = "completed"
	EventCancelled  = "cancelled"
)

// Event is the admin-owned activity staff apply to work. The attendance
// core reads status, ownership and the time window; it never mutates an
// event directly.
//
// Fields:
//
//	ID        – primary key identifier.
//	Title     – display title.
//	CreatedBy – admin who owns the event; ownership gates QR issuance,
//	            participant approval and overrides.
//	Status    – lifecycle status (see constants above).
//	StartsAt  – scheduled start, UTC.
//	EndsAt    – scheduled end, UTC.
//	IsDeleted – soft-delete flag; deleted events read as not found.
type Event struct {
	ID        uint64    // events.id
	Title     string    // events.title
	CreatedBy uint64    // events.created_by
	Status    string    // events.status
	StartsAt  time.Time // events.starts_at
	EndsAt    time.Time // events.ends_at
	IsDeleted bool      // events.is_deleted
	CreatedAt time.Time // events.created_at
	UpdatedAt time.Time // events.updated_at
}

// Accepting reports whether the event is open for check-in activity
// (published or already running).
func (e *Event) Accepting() bool {
	return e.Status == EventPublished || e.Status == EventInProgress
}

// checkInGrace is the window either side of the scheduled event time in
// which check-ins are accepted. A business rule, not a token grace.
const checkInGrace = 2 * time.Hour

// WithinCheckInWindow reports whether now falls inside
// [StartsAt - 2h, EndsAt + 2h].
func (e *Event) WithinCheckInWindow(now time.Time) bool {
	return !now.Before(e.StartsAt.Add(-checkInGrace)) && !now.After(e.EndsAt.Add(checkInGrace))
}

// EventRole is a position within an event with a price and a capacity.
// FilledSlots counts live applications; the invariant filled <= capacity
// is enforced by conditional updates in the repository, never by plain
// read-modify-write.
type EventRole struct {
	ID          uint64    // event_roles.id
	EventID     uint64    // event_roles.event_id
	RoleName    string    // event_roles.role_name
	PriceCents  uint32    // event_roles.price_cents
	Capacity    uint32    // event_roles.capacity
	FilledSlots uint32    // event_roles.filled_slots
	CreatedAt   time.Time // event_roles.created_at
	UpdatedAt   time.Time // event_roles.updated_at
}
