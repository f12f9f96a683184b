package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vitalreg/internal/auth/models"
	"vitalreg/pkg/platform/sentinel"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, verified,
	verification_token, verification_token_expiry, reset_token, reset_token_expiry,
	created_at, updated_at`

// PostgresStore persists user records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.Verified,
		nullString(u.VerificationToken), nullTime(u.VerificationTokenExpiry),
		nullString(u.ResetToken), nullTime(u.ResetTokenExpiry),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			verified = EXCLUDED.verified,
			verification_token = EXCLUDED.verification_token,
			verification_token_expiry = EXCLUDED.verification_token_expiry,
			reset_token = EXCLUDED.reset_token,
			reset_token_expiry = EXCLUDED.reset_token_expiry,
			updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.Verified,
		nullString(u.VerificationToken), nullTime(u.VerificationTokenExpiry),
		nullString(u.ResetToken), nullTime(u.ResetTokenExpiry),
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id), "find user by id")
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email), "find user by email")
}

func (s *PostgresStore) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE verification_token = $1
		  AND (verification_token_expiry IS NULL OR verification_token_expiry >= $2)
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, token, now), "find user by verification token")
}

func (s *PostgresStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE reset_token = $1
		  AND (reset_token_expiry IS NULL OR reset_token_expiry >= $2)
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, token, now), "find user by reset token")
}

func (s *PostgresStore) scanUser(row *sql.Row, op string) (*models.User, error) {
	var (
		u                models.User
		role             string
		verifyToken      sql.NullString
		verifyExpiry     sql.NullTime
		resetToken       sql.NullString
		resetTokenExpiry sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.Verified,
		&verifyToken, &verifyExpiry, &resetToken, &resetTokenExpiry,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Role = models.Role(role)
	u.VerificationToken = verifyToken.String
	if verifyExpiry.Valid {
		u.VerificationTokenExpiry = verifyExpiry.Time
	}
	u.ResetToken = resetToken.String
	if resetTokenExpiry.Valid {
		u.ResetTokenExpiry = resetTokenExpiry.Time
	}
	return &u, nil
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
