package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome reports the state a pair settled in. Changed tells the caller
// that derived aggregates (post score, rankings) are now stale and need
// recomputing.
type Outcome struct {
	State   Direction
	Changed bool
}

// Coordinator applies vote intents to persisted state. The transition
// is always resolved from what the store holds, never from a
// client-supplied previous state, and persisted with one conditional
// write so concurrent requests for the same pair serialize on the
// unique index (last writer wins).
type Coordinator struct {
	repo   Repository
	logger *zap.Logger
}

func NewCoordinator(repo Repository, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{repo: repo, logger: logger}
}

// Current returns the persisted vote state for the pair.
func (c *Coordinator) Current(ctx context.Context, userID, postID uuid.UUID) (Direction, error) {
	d, err := c.repo.Get(ctx, userID, postID)
	if errors.Is(err, ErrNotFound) {
		return None, nil
	}
	if err != nil {
		return None, fmt.Errorf("%w: get: %v", ErrRetryable, err)
	}
	return d, nil
}

// Apply resolves the transition for the requested direction and persists
// it: an atomic upsert for up/down, a keyed delete when the pair resolves
// to no vote. Storage failures surface as ErrRetryable with no partial
// state left behind.
func (c *Coordinator) Apply(ctx context.Context, userID, postID uuid.UUID, requested Direction) (Outcome, error) {
	current, err := c.Current(ctx, userID, postID)
	if err != nil {
		return Outcome{}, err
	}

	next := resolve(current, requested)

	switch {
	case next == None && current == None:
		return Outcome{State: None}, nil
	case next == None:
		if err := c.repo.Delete(ctx, userID, postID); err != nil {
			return Outcome{}, fmt.Errorf("%w: delete: %v", ErrRetryable, err)
		}
	default:
		v := Vote{UserID: userID, PostID: postID, Direction: next}
		if err := c.repo.Upsert(ctx, v); err != nil {
			return Outcome{}, fmt.Errorf("%w: upsert: %v", ErrRetryable, err)
		}
	}

	c.logger.Debug("vote applied",
		zap.String("user_id", userID.String()),
		zap.String("post_id", postID.String()),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)

	return Outcome{State: next, Changed: true}, nil
}
