// Package vote holds the upvote state machine and the archival policy. Both
// are pure: the store layer applies Apply inside its transaction, and the
// service layer consults ShouldArchive after the transaction commits.
package vote

import "errors"

type Action string

const (
	Upvote       Action = "UPVOTE"
	CancelUpvote Action = "CANCEL_UPVOTE"
)

var (
	// ErrNotVotable means the target status carries no upvote counter.
	ErrNotVotable = errors.New("status is not votable")
	// ErrInvalidTransition means an upvote by a user who already voted, or a
	// cancel by one who never did. Kept as a hard error rather than a no-op.
	ErrInvalidTransition = errors.New("invalid vote transition")
	// ErrUnknownAction means the action string is neither UPVOTE nor CANCEL_UPVOTE.
	ErrUnknownAction = errors.New("unknown vote action")
)

// ParseAction validates a wire-level action string.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case Upvote, CancelUpvote:
		return Action(raw), nil
	default:
		return "", ErrUnknownAction
	}
}

// Decision is the outcome of applying an action to a status.
type Decision struct {
	NewCount int64
	HasVoted bool
}

// Apply runs the vote state machine. count is the status's current counter
// (nil when the status is not votable); hasVoted is whether a vote record
// exists for this (status, user) pair. The caller must evaluate both reads
// and the resulting writes inside one transaction.
func Apply(count *int64, hasVoted bool, action Action) (Decision, error) {
	if count == nil {
		return Decision{}, ErrNotVotable
	}
	switch action {
	case Upvote:
		if hasVoted {
			return Decision{}, ErrInvalidTransition
		}
		return Decision{NewCount: *count + 1, HasVoted: true}, nil
	case CancelUpvote:
		if !hasVoted {
			return Decision{}, ErrInvalidTransition
		}
		return Decision{NewCount: *count - 1, HasVoted: false}, nil
	default:
		return Decision{}, ErrUnknownAction
	}
}

// ShouldArchive decides whether a tag transitions to archived after its vote
// counter changed. Only votable categories archive, the transition is one-way,
// and the counter must strictly exceed the threshold. Re-evaluating an already
// archived tag is always false, so callers never write or publish twice.
func ShouldArchive(votable, archived bool, newCount int64, threshold int) bool {
	if !votable || archived {
		return false
	}
	return newCount > int64(threshold)
}
