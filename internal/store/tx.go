package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict is returned once a contended transaction has exhausted its
// retries. Callers may retry the whole request.
var ErrConflict = errors.New("transaction conflict")

const txMaxAttempts = 3

// inTx runs fn inside a transaction, retrying a bounded number of times when
// Postgres reports a serialization failure or deadlock. fn must be safe to
// re-run from scratch.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// isRetryable recognizes the SQLSTATEs Postgres uses for optimistic-conflict
// aborts: 40001 serialization_failure and 40P01 deadlock_detected.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
