package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitalreg/internal/registration/models"
	"vitalreg/pkg/platform/sentinel"
)

const deathColumns = `id, application_id, deceased_name, date_of_death, time_of_death,
	place_of_death, cause_of_death, next_of_kin_name, next_of_kin_relationship,
	next_of_kin_contact, next_of_kin_national_id,
	submitted_by, status, reviewed_by, review_notes, certificate_number, created_at, updated_at`

// PostgresDeathStore persists death registrations in PostgreSQL.
type PostgresDeathStore struct {
	db *sql.DB
}

func NewPostgresDeathStore(db *sql.DB) *PostgresDeathStore {
	return &PostgresDeathStore{db: db}
}

func (s *PostgresDeathStore) Create(ctx context.Context, reg *models.DeathRegistration) error {
	if reg == nil {
		return fmt.Errorf("death registration is required")
	}
	query := `
		INSERT INTO death_registrations (
			application_id, deceased_name, date_of_death, time_of_death,
			place_of_death, cause_of_death, next_of_kin_name, next_of_kin_relationship,
			next_of_kin_contact, next_of_kin_national_id,
			submitted_by, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		reg.ApplicationID, reg.DeceasedName, reg.DateOfDeath, nullString(reg.TimeOfDeath),
		reg.PlaceOfDeath, reg.CauseOfDeath, reg.NextOfKinName, reg.NextOfKinRelationship,
		reg.NextOfKinContact, nullString(reg.NextOfKinNationalID),
		reg.SubmittedBy, string(reg.Status), reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create death registration: %w", err)
	}
	return nil
}

func (s *PostgresDeathStore) FindByID(ctx context.Context, id int64) (*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations WHERE id = $1`
	return scanDeath(s.db.QueryRowContext(ctx, query, id), "find death registration by id")
}

func (s *PostgresDeathStore) FindByApplicationID(ctx context.Context, applicationID string) (*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations WHERE application_id = $1`
	return scanDeath(s.db.QueryRowContext(ctx, query, applicationID), "find death registration by application id")
}

func (s *PostgresDeathStore) FindByCertificateNumber(ctx context.Context, certificateNumber string) (*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations WHERE certificate_number = $1`
	return scanDeath(s.db.QueryRowContext(ctx, query, certificateNumber), "find death registration by certificate")
}

// UpdateStatus applies the decision in a single conditional statement so a
// record can only ever leave pending once.
func (s *PostgresDeathStore) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*models.DeathRegistration, error) {
	query := `
		UPDATE death_registrations
		SET status = $2, reviewed_by = $3, review_notes = $4, certificate_number = $5, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + deathColumns
	reg, err := scanDeath(s.db.QueryRowContext(ctx, query,
		id, string(update.Status), nullString(update.ReviewedBy),
		nullString(update.ReviewNotes), nullString(update.CertificateNumber),
	), "update death registration status")
	if err == nil {
		return reg, nil
	}
	if isUniqueViolation(err) {
		return nil, sentinel.ErrConflict
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		if _, findErr := s.FindByID(ctx, id); findErr == nil {
			return nil, sentinel.ErrInvalidState
		}
		return nil, sentinel.ErrNotFound
	}
	return nil, err
}

func (s *PostgresDeathStore) ListAll(ctx context.Context) ([]*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query)
}

func (s *PostgresDeathStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations WHERE status = $1 ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query, string(status))
}

func (s *PostgresDeathStore) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.DeathRegistration, error) {
	query := `SELECT ` + deathColumns + ` FROM death_registrations WHERE submitted_by = $1 ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query, submitterID)
}

func (s *PostgresDeathStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM death_registrations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count death registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresDeathStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM death_registrations WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count death registrations by status: %w", err)
	}
	return count, nil
}

func (s *PostgresDeathStore) list(ctx context.Context, query string, args ...any) ([]*models.DeathRegistration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list death registrations: %w", err)
	}
	defer rows.Close()

	var regs []*models.DeathRegistration
	for rows.Next() {
		reg, err := scanDeath(rows, "scan death registration")
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate death registrations: %w", err)
	}
	return regs, nil
}

func scanDeath(row rowScanner, op string) (*models.DeathRegistration, error) {
	var (
		reg         models.DeathRegistration
		status      string
		timeOfDeath sql.NullString
		kinNatID    sql.NullString
		reviewedBy  sql.NullString
		reviewNotes sql.NullString
		certNumber  sql.NullString
	)
	err := row.Scan(
		&reg.ID, &reg.ApplicationID, &reg.DeceasedName, &reg.DateOfDeath, &timeOfDeath,
		&reg.PlaceOfDeath, &reg.CauseOfDeath, &reg.NextOfKinName, &reg.NextOfKinRelationship,
		&reg.NextOfKinContact, &kinNatID,
		&reg.SubmittedBy, &status, &reviewedBy, &reviewNotes, &certNumber, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reg.Status = models.Status(status)
	reg.TimeOfDeath = timeOfDeath.String
	reg.NextOfKinNationalID = kinNatID.String
	reg.ReviewedBy = reviewedBy.String
	reg.ReviewNotes = reviewNotes.String
	reg.CertificateNumber = certNumber.String
	return &reg, nil
}
