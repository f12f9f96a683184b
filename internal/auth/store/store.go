// Package store defines the persistence contracts for identity and session
// records. Implementations live in the user and session subpackages, each
// with an in-memory and a PostgreSQL variant.
package store

import (
	"context"
	"time"

	"vitalreg/internal/auth/models"
)

// UserStore persists identity records. Create fails with
// sentinel.ErrConflict on a duplicate email; lookups fail with
// sentinel.ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	// Upsert inserts or fully updates the record keyed by ID, refreshing
	// the update timestamp.
	Upsert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByVerificationToken and FindByResetToken match only unexpired
	// tokens; an expired match reports sentinel.ErrNotFound.
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
}

// SessionStore persists server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, sid string) (*models.Session, error)
	// Touch extends a session's expiry (rolling window).
	Touch(ctx context.Context, sid string, expiresAt time.Time) error
	Delete(ctx context.Context, sid string) error
	// DeleteExpired removes every session past its expiry and returns the
	// number pruned.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
