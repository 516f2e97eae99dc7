package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/vote"
)

// CastVote atomically applies an upvote or cancel to a status. The row lock on
// the status serializes concurrent voters, so the counter always equals the
// number of vote rows when the transaction commits. State-machine violations
// surface as vote.ErrNotVotable / vote.ErrInvalidTransition; a missing status
// is sql.ErrNoRows; lock contention retries inside inTx and eventually
// reports ErrConflict.
func (s *PostgresStore) CastVote(ctx context.Context, statusID, userID string, action vote.Action) (VoteResult, error) {
	var result VoteResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var count sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT upvote_count FROM statuses WHERE id=$1 FOR UPDATE`,
			statusID).Scan(&count); err != nil {
			return err
		}

		var hasVoted bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM votes WHERE status_id=$1 AND user_id=$2)`,
			statusID, userID).Scan(&hasVoted); err != nil {
			return fmt.Errorf("read vote record: %w", err)
		}

		var current *int64
		if count.Valid {
			current = &count.Int64
		}
		decision, err := vote.Apply(current, hasVoted, action)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE statuses SET upvote_count=$2 WHERE id=$1`,
			statusID, decision.NewCount); err != nil {
			return fmt.Errorf("write counter: %w", err)
		}

		if decision.HasVoted {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO votes (status_id, user_id) VALUES ($1, $2)`,
				statusID, userID); err != nil {
				return fmt.Errorf("insert vote record: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM votes WHERE status_id=$1 AND user_id=$2`,
				statusID, userID); err != nil {
				return fmt.Errorf("delete vote record: %w", err)
			}
		}

		result = VoteResult{StatusID: statusID, NewCount: decision.NewCount, HasVoted: decision.HasVoted}
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	return result, nil
}
