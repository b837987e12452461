package vote

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Repository.Get when the pair has no vote.
var ErrNotFound = errors.New("vote: not found")

// ErrRetryable marks transient storage failures. Callers should retry
// the whole Apply call, which re-reads current state, rather than
// resubmit a stale delta.
var ErrRetryable = errors.New("vote: retryable storage failure")

// Repository is the narrow persistence surface the coordinator needs.
// Upsert must be a single atomic insert-or-update keyed on the
// (user, post) unique index; Delete removes by the same key. Tally
// exists so callers can recompute derived post scores from the rows.
type Repository interface {
	Get(ctx context.Context, userID, postID uuid.UUID) (Direction, error)
	Upsert(ctx context.Context, v Vote) error
	Delete(ctx context.Context, userID, postID uuid.UUID) error
	Tally(ctx context.Context, postID uuid.UUID) (up, down int64, err error)
}
