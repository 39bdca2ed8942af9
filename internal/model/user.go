package model

import "time"

// Actor roles. Resolved once at login into the JWT role claim; handlers
// and middleware branch on the claim, never on ad hoc type sniffing.
const (
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// User is a staff member or admin account. The attendance core stores
// only opaque user IDs in verified_by/admin_id fields; profile data
// lives here for the auth surface.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	FullName     – display name.
//	Role         – STAFF or ADMIN.
//	IsVerified   – set after OTP verification completes.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Role         string    // users.role
	IsVerified   bool      // users.is_verified
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models a row in refresh_tokens. Only the SHA-256 hash of
// the raw token is stored; each session gets its own row with its own
// expiry, so concurrent sessions revoke independently.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
