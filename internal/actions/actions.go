// Package actions guards the feed's write actions. Every guarded action
// runs the same flow the original server actions did: resolve the
// caller, check the rate limit for the action (scoped to a resource
// where the policy demands it), then perform the write.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snipfeed/writegate/config"
	"github.com/snipfeed/writegate/internal/limiter"
	"github.com/snipfeed/writegate/internal/vote"
)

// ErrUnauthenticated means the action needs a resolved subject and none
// was present. It is fatal to the action and never retried.
var ErrUnauthenticated = errors.New("actions: not authenticated")

// ThrottledError is the user-facing "please wait" outcome of a guarded
// action. It is a normal quota decision, distinct from infrastructure
// failures.
type ThrottledError struct {
	Action  string
	ResetAt time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("actions: %s throttled until %s", e.Action, e.ResetAt.Format(time.RFC3339))
}

// SubjectResolver supplies the authenticated caller's identity, or the
// empty string for anonymous callers. Backed by the identity provider
// session in production.
type SubjectResolver interface {
	Subject(ctx context.Context) string
}

type Service struct {
	limiter *limiter.Limiter
	votes   *vote.Coordinator
	subject SubjectResolver
	logger  *zap.Logger
}

func NewService(l *limiter.Limiter, votes *vote.Coordinator, subject SubjectResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{limiter: l, votes: votes, subject: subject, logger: logger}
}

// guard runs the rate-limit check for one action. subjectID must already
// be resolved; resourceID scopes the identifier for per-resource
// policies (votes). Quota exhaustion comes back as *ThrottledError.
func (s *Service) guard(ctx context.Context, subjectID, action, resourceID string) error {
	id := limiter.BuildIdentifier(subjectID, action, resourceID)
	res, err := s.limiter.CheckAndRecord(ctx, id, config.PolicyFor(action))
	if err != nil {
		return err
	}
	if res.Limited {
		s.logger.Info("action throttled",
			zap.String("action", action),
			zap.String("identifier", id),
			zap.Time("reset_at", res.ResetAt),
		)
		return &ThrottledError{Action: action, ResetAt: res.ResetAt}
	}
	return nil
}

func (s *Service) requireSubject(ctx context.Context) (string, error) {
	subjectID := s.subject.Subject(ctx)
	if subjectID == "" {
		return "", ErrUnauthenticated
	}
	return subjectID, nil
}

// Vote applies the caller's vote intent to a post. The vote policy is
// scoped per post, so rapid toggles on one post are throttled while
// votes on other posts proceed.
func (s *Service) Vote(ctx context.Context, postID uuid.UUID, direction vote.Direction) (vote.Outcome, error) {
	subjectID, err := s.requireSubject(ctx)
	if err != nil {
		return vote.Outcome{}, err
	}
	if err := s.guard(ctx, subjectID, config.ActionVote, postID.String()); err != nil {
		return vote.Outcome{}, err
	}

	userID, err := uuid.Parse(subjectID)
	if err != nil {
		return vote.Outcome{}, fmt.Errorf("actions: invalid subject id: %w", err)
	}
	return s.votes.Apply(ctx, userID, postID, direction)
}

// CurrentVote reads the caller's persisted vote on a post; anonymous
// callers simply have none.
func (s *Service) CurrentVote(ctx context.Context, postID uuid.UUID) (vote.Direction, error) {
	subjectID := s.subject.Subject(ctx)
	if subjectID == "" {
		return vote.None, nil
	}
	userID, err := uuid.Parse(subjectID)
	if err != nil {
		return vote.None, fmt.Errorf("actions: invalid subject id: %w", err)
	}
	return s.votes.Current(ctx, userID, postID)
}

// The remaining guards protect writes whose persistence lives outside
// this core; callers proceed with their own storage once the guard
// passes.

func (s *Service) GuardCreatePost(ctx context.Context) error {
	subjectID, err := s.requireSubject(ctx)
	if err != nil {
		return err
	}
	return s.guard(ctx, subjectID, config.ActionCreatePost, "")
}

func (s *Service) GuardCreateComment(ctx context.Context) error {
	subjectID, err := s.requireSubject(ctx)
	if err != nil {
		return err
	}
	return s.guard(ctx, subjectID, config.ActionCreateComment, "")
}

func (s *Service) GuardDeleteComment(ctx context.Context) error {
	subjectID, err := s.requireSubject(ctx)
	if err != nil {
		return err
	}
	return s.guard(ctx, subjectID, config.ActionDeleteComment, "")
}

func (s *Service) GuardDeleteAccount(ctx context.Context) error {
	subjectID, err := s.requireSubject(ctx)
	if err != nil {
		return err
	}
	return s.guard(ctx, subjectID, config.ActionDeleteAccount, "")
}
