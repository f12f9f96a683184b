package models

import (
	"time"
)

// Role enumerates the fixed access levels. Anything outside this set is
// rejected at the boundary.
type Role string

const (
	RolePublic       Role = "public"
	RoleHealthWorker Role = "health_worker"
	RoleRegistrar    Role = "registrar"
	RoleAdmin        Role = "admin"
)

// ValidRole reports whether s names one of the fixed roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RolePublic, RoleHealthWorker, RoleRegistrar, RoleAdmin:
		return true
	}
	return false
}

// CanReview reports whether the role may approve or reject applications.
func (r Role) CanReview() bool {
	return r == RoleRegistrar || r == RoleAdmin
}

// User is the identity record managed by the credential store.
// Verification and reset tokens are single-use and time-boxed: consuming one
// clears it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Verified     bool

	VerificationToken       string
	VerificationTokenExpiry time.Time
	ResetToken              string
	ResetTokenExpiry        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the durable server-side session record behind the sid cookie.
type Session struct {
	SID       string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
