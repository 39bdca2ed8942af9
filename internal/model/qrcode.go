package model

import "time"

// QRCode is one issuance of a signed event check-in token. The token
// string itself is a JWT; this row is the administrative record that
// lets an admin revoke a cryptographically valid token before its TTL.
// At most one row per event has IsActive set; issuing a new code
// deactivates all prior active ones (last writer wins).
//
// Rows are deactivated, never deleted.
type QRCode struct {
	ID        uint64    // qr_codes.id
	EventID   uint64    // qr_codes.event_id
	Token     string    // qr_codes.token (signed JWT)
	ExpiresAt time.Time // qr_codes.expires_at
	CreatedBy uint64    // qr_codes.created_by (issuing admin)
	IsActive  bool      // qr_codes.is_active
	CreatedAt time.Time // qr_codes.created_at
}

// Expired reports whether the persisted expiry has passed. Expiry is
// evaluated lazily at validation time; nothing sweeps old rows.
func (q *QRCode) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}
