// Package store persists registration applications and the per-year
// sequence counters behind application ids. Each store has an in-memory and
// a PostgreSQL implementation.
package store

import (
	"context"

	"vitalreg/internal/registration/models"
)

// CounterStore hands out the next sequence number for an application id.
// Implementations must be atomic under concurrent calls: two submissions
// never observe the same sequence.
type CounterStore interface {
	NextSequence(ctx context.Context, kind models.Kind, year int) (int, error)
}

// StatusUpdate carries a decision to apply to a pending application. The
// certificate number is set exactly when the new status is approved.
type StatusUpdate struct {
	Status            models.Status
	ReviewedBy        string
	ReviewNotes       string
	CertificateNumber string
}

// BirthStore persists birth registrations. Lookups fail with
// sentinel.ErrNotFound; UpdateStatus fails with sentinel.ErrInvalidState
// when the record is no longer pending and with sentinel.ErrConflict on a
// duplicate certificate number. List results are ordered newest-first.
type BirthStore interface {
	Create(ctx context.Context, reg *models.BirthRegistration) error
	FindByID(ctx context.Context, id int64) (*models.BirthRegistration, error)
	FindByApplicationID(ctx context.Context, applicationID string) (*models.BirthRegistration, error)
	FindByCertificateNumber(ctx context.Context, certificateNumber string) (*models.BirthRegistration, error)
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*models.BirthRegistration, error)
	ListAll(ctx context.Context) ([]*models.BirthRegistration, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.BirthRegistration, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.BirthRegistration, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}

// DeathStore persists death registrations with the same contract as
// BirthStore.
type DeathStore interface {
	Create(ctx context.Context, reg *models.DeathRegistration) error
	FindByID(ctx context.Context, id int64) (*models.DeathRegistration, error)
	FindByApplicationID(ctx context.Context, applicationID string) (*models.DeathRegistration, error)
	FindByCertificateNumber(ctx context.Context, certificateNumber string) (*models.DeathRegistration, error)
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*models.DeathRegistration, error)
	ListAll(ctx context.Context) ([]*models.DeathRegistration, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.DeathRegistration, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.DeathRegistration, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}
