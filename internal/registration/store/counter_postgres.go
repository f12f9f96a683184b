package store

import (
	"context"
	"database/sql"
	"fmt"

	"vitalreg/internal/registration/models"
)

// PostgresCounter allocates sequence numbers through an atomic upsert, so
// concurrent submissions can never observe the same value.
type PostgresCounter struct {
	db *sql.DB
}

func NewPostgresCounter(db *sql.DB) *PostgresCounter {
	return &PostgresCounter{db: db}
}

func (c *PostgresCounter) NextSequence(ctx context.Context, kind models.Kind, year int) (int, error) {
	query := `
		INSERT INTO application_counters (kind, year, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, year) DO UPDATE SET
			counter = application_counters.counter + 1
		RETURNING counter
	`
	var seq int
	if err := c.db.QueryRowContext(ctx, query, string(kind), year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
