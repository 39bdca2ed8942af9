// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// AttendanceCompletedEvent is published when an attendance record
// reaches COMPLETED, by normal check-out or by admin override. The
// payment calculator consumes it downstream; the payload carries the
// price snapshot and both timestamps so pay can be computed without
// touching the primary database.
type AttendanceCompletedEvent struct {
	AttendanceID   uint64 `json:"attendance_id"`
	EventID        uint64 `json:"event_id"`
	StaffID        uint64 `json:"staff_id"`
	RoleName       string `json:"role_name"`
	RolePriceCents uint32 `json:"role_price_cents"`
	CheckInAt      string `json:"check_in_at"`
	CheckOutAt     string `json:"check_out_at"`
	Method         string `json:"method"` // qr, manual or override
	CompletedAt    string `json:"completed_at"`
}
