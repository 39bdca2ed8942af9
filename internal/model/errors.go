// Sentinel errors shared by the model and repository layers. Handlers
// compare against these with errors.Is and translate them into HTTP
// status codes; nothing below the handler layer knows about transports.
//
// The taxonomy splits cleanly into "your request was invalid" values
// (conflicts, failed preconditions, validation) and storage-layer
// failures, which are wrapped and surfaced as-is.
package model

import "errors"

// ErrNotFound is returned when a referenced entity does not exist or is
// soft-deleted. Handlers translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrPermissionDenied is returned when the caller does not own the
// resource (e.g. an admin acting on another admin's event). 403.
var ErrPermissionDenied = errors.New("permission denied")

// ErrInvalidState is returned when a business rule about an entity's
// lifecycle is violated, e.g. issuing a QR for a draft event. 400.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidTransition is the generic attendance state machine
// violation. The more specific values below wrap or replace it where
// the caller can act on the distinction.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrAlreadyCheckedIn is returned when a check-in hits a record that is
// already ACTIVE, CHECKED_IN or COMPLETED. Retrying is pointless. 409.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// ErrAlreadyCheckedOut is returned when a check-out hits a COMPLETED
// record. 409.
var ErrAlreadyCheckedOut = errors.New("already checked out")

// ErrNotCheckedIn is returned when a check-out runs before any check-in.
var ErrNotCheckedIn = errors.New("not checked in")

// ErrAbsentLocked is returned when staff marked ABSENT attempts a normal
// transition; only an admin override can move the record again. 403.
var ErrAbsentLocked = errors.New("marked absent")

// ErrNotApproved is returned when staff without an approved application
// attempts to check in. Distinct from state-machine errors. 403.
var ErrNotApproved = errors.New("not approved for event")

// ErrRoleFull is returned when a role has no remaining capacity. 409.
var ErrRoleFull = errors.New("role is full")

// ErrAlreadyApplied is returned when a staff member already holds an
// application for the event. 409.
var ErrAlreadyApplied = errors.New("already applied")

// ErrValidation is returned for malformed or missing input, e.g. an
// override reason under the minimum length. 400.
var ErrValidation = errors.New("validation failed")

// ErrTokenExpired is returned when a QR token's signature is valid but
// its TTL, or the persisted record's expiry, has passed.
var ErrTokenExpired = errors.New("qr token expired")

// ErrInvalidToken is returned for tokens that fail signature or type
// checks, or whose persisted record is missing or revoked.
var ErrInvalidToken = errors.New("invalid qr token")
