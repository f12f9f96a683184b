package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vitalreg/internal/registration/models"
	"vitalreg/pkg/platform/sentinel"
)

const birthColumns = `id, application_id, child_name, child_sex, date_of_birth, time_of_birth,
	place_of_birth, father_name, father_national_id, father_date_of_birth, father_occupation,
	mother_name, mother_national_id, mother_date_of_birth, mother_occupation,
	submitted_by, status, reviewed_by, review_notes, certificate_number, created_at, updated_at`

// PostgresBirthStore persists birth registrations in PostgreSQL.
type PostgresBirthStore struct {
	db *sql.DB
}

func NewPostgresBirthStore(db *sql.DB) *PostgresBirthStore {
	return &PostgresBirthStore{db: db}
}

func (s *PostgresBirthStore) Create(ctx context.Context, reg *models.BirthRegistration) error {
	if reg == nil {
		return fmt.Errorf("birth registration is required")
	}
	query := `
		INSERT INTO birth_registrations (
			application_id, child_name, child_sex, date_of_birth, time_of_birth,
			place_of_birth, father_name, father_national_id, father_date_of_birth, father_occupation,
			mother_name, mother_national_id, mother_date_of_birth, mother_occupation,
			submitted_by, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		reg.ApplicationID, reg.ChildName, reg.ChildSex, reg.DateOfBirth, nullString(reg.TimeOfBirth),
		reg.PlaceOfBirth, reg.FatherName, reg.FatherNationalID, nullTime(reg.FatherDateOfBirth), nullString(reg.FatherOccupation),
		reg.MotherName, reg.MotherNationalID, nullTime(reg.MotherDateOfBirth), nullString(reg.MotherOccupation),
		reg.SubmittedBy, string(reg.Status), reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create birth registration: %w", err)
	}
	return nil
}

func (s *PostgresBirthStore) FindByID(ctx context.Context, id int64) (*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations WHERE id = $1`
	return scanBirth(s.db.QueryRowContext(ctx, query, id), "find birth registration by id")
}

func (s *PostgresBirthStore) FindByApplicationID(ctx context.Context, applicationID string) (*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations WHERE application_id = $1`
	return scanBirth(s.db.QueryRowContext(ctx, query, applicationID), "find birth registration by application id")
}

func (s *PostgresBirthStore) FindByCertificateNumber(ctx context.Context, certificateNumber string) (*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations WHERE certificate_number = $1`
	return scanBirth(s.db.QueryRowContext(ctx, query, certificateNumber), "find birth registration by certificate")
}

// UpdateStatus applies the decision in a single conditional statement so a
// record can only ever leave pending once.
func (s *PostgresBirthStore) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*models.BirthRegistration, error) {
	query := `
		UPDATE birth_registrations
		SET status = $2, reviewed_by = $3, review_notes = $4, certificate_number = $5, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + birthColumns
	reg, err := scanBirth(s.db.QueryRowContext(ctx, query,
		id, string(update.Status), nullString(update.ReviewedBy),
		nullString(update.ReviewNotes), nullString(update.CertificateNumber),
	), "update birth registration status")
	if err == nil {
		return reg, nil
	}
	if isUniqueViolation(err) {
		return nil, sentinel.ErrConflict
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		// No pending row matched: either the id is unknown or the record
		// already reached a terminal status.
		if _, findErr := s.FindByID(ctx, id); findErr == nil {
			return nil, sentinel.ErrInvalidState
		}
		return nil, sentinel.ErrNotFound
	}
	return nil, err
}

func (s *PostgresBirthStore) ListAll(ctx context.Context) ([]*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query)
}

func (s *PostgresBirthStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations WHERE status = $1 ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query, string(status))
}

func (s *PostgresBirthStore) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.BirthRegistration, error) {
	query := `SELECT ` + birthColumns + ` FROM birth_registrations WHERE submitted_by = $1 ORDER BY created_at DESC, id DESC`
	return s.list(ctx, query, submitterID)
}

func (s *PostgresBirthStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM birth_registrations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count birth registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresBirthStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM birth_registrations WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count birth registrations by status: %w", err)
	}
	return count, nil
}

func (s *PostgresBirthStore) list(ctx context.Context, query string, args ...any) ([]*models.BirthRegistration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list birth registrations: %w", err)
	}
	defer rows.Close()

	var regs []*models.BirthRegistration
	for rows.Next() {
		reg, err := scanBirth(rows, "scan birth registration")
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate birth registrations: %w", err)
	}
	return regs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBirth(row rowScanner, op string) (*models.BirthRegistration, error) {
	var (
		reg          models.BirthRegistration
		status       string
		timeOfBirth  sql.NullString
		fatherDOB    sql.NullTime
		fatherOcc    sql.NullString
		motherDOB    sql.NullTime
		motherOcc    sql.NullString
		reviewedBy   sql.NullString
		reviewNotes  sql.NullString
		certNumber   sql.NullString
	)
	err := row.Scan(
		&reg.ID, &reg.ApplicationID, &reg.ChildName, &reg.ChildSex, &reg.DateOfBirth, &timeOfBirth,
		&reg.PlaceOfBirth, &reg.FatherName, &reg.FatherNationalID, &fatherDOB, &fatherOcc,
		&reg.MotherName, &reg.MotherNationalID, &motherDOB, &motherOcc,
		&reg.SubmittedBy, &status, &reviewedBy, &reviewNotes, &certNumber, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reg.Status = models.Status(status)
	reg.TimeOfBirth = timeOfBirth.String
	if fatherDOB.Valid {
		reg.FatherDateOfBirth = fatherDOB.Time
	}
	reg.FatherOccupation = fatherOcc.String
	if motherDOB.Valid {
		reg.MotherDateOfBirth = motherDOB.Time
	}
	reg.MotherOccupation = motherOcc.String
	reg.ReviewedBy = reviewedBy.String
	reg.ReviewNotes = reviewNotes.String
	reg.CertificateNumber = certNumber.String
	return &reg, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
