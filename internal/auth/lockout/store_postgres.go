package lockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists lockout records in PostgreSQL. All counter logic
// runs in single atomic statements so concurrent failed logins cannot race
// past the attempt limit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed lockout store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, email string) (*Record, error) {
	query := `
		SELECT email, failure_count, locked_until, last_failure_at
		FROM auth_lockouts
		WHERE email = $1
	`
	var (
		record      Record
		lockedUntil sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&record.Email, &record.FailureCount, &lockedUntil, &record.LastFailureAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lockout record: %w", err)
	}
	record.LockedUntil = lockedUntil.Time
	return &record, nil
}

func (s *PostgresStore) RecordFailure(ctx context.Context, email string, now, windowStart time.Time) (*Record, error) {
	query := `
		INSERT INTO auth_lockouts (email, failure_count, last_failure_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (email) DO UPDATE SET
			failure_count = CASE
				WHEN auth_lockouts.last_failure_at < $3 THEN 1
				ELSE auth_lockouts.failure_count + 1
			END,
			last_failure_at = $2
		RETURNING email, failure_count, locked_until, last_failure_at
	`
	var (
		record      Record
		lockedUntil sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, email, now, windowStart).Scan(
		&record.Email, &record.FailureCount, &lockedUntil, &record.LastFailureAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	record.LockedUntil = lockedUntil.Time
	return &record, nil
}

func (s *PostgresStore) Lock(ctx context.Context, email string, until time.Time) error {
	query := `
		INSERT INTO auth_lockouts (email, failure_count, locked_until, last_failure_at)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (email) DO UPDATE SET locked_until = $2
	`
	if _, err := s.db.ExecContext(ctx, query, email, until); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_lockouts WHERE email = $1`, email); err != nil {
		return fmt.Errorf("clear lockout record: %w", err)
	}
	return nil
}
