package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresIdempotencyChecker is the second dedup tier: a lookup in the
// event log by (event_type, idempotency_key).
type PostgresIdempotencyChecker struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresIdempotencyChecker(db *sql.DB) *PostgresIdempotencyChecker {
	return &PostgresIdempotencyChecker{
		db:      db,
		timeout: 500 * time.Millisecond,
	}
}

// IsDuplicate checks if the key was already logged for eventType.
func (pic *PostgresIdempotencyChecker) IsDuplicate(ctx context.Context, eventType string, idempotencyKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, pic.timeout)
	defer cancel()

	var exists int
	err := pic.db.QueryRowContext(ctx, `
		SELECT 1
		FROM event_log.events
		WHERE event_type = $1 AND idempotency_key = $2
		LIMIT 1
	`, eventType, idempotencyKey).Scan(&exists)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
