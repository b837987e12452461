package limiter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snipfeed/writegate/config"
)

// CounterStore counts requests per key with an expiry. Incr is a single
// atomic compare-and-increment: when the live counter is already at or
// above limit it must not increment and must report allowed=false;
// otherwise it increments, creating the counter with ttl on first use.
// Adapters back this with a shared store so counts survive across
// processes and instances.
type CounterStore interface {
	Incr(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)
}

// Result is the outcome of a rate-limit check. Quota exhaustion is a
// normal Limited=true result, not an error. Degraded reports that the
// counter store failed and the limiter let the call through (fail-open),
// so callers and tests can observe the policy instead of a swallowed
// error.
type Result struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}

// Limiter enforces fixed-window policies over a CounterStore. Windows
// are aligned to wall-clock boundaries (now truncated to the window
// size), trading boundary bursts for O(1) state per identifier.
type Limiter struct {
	store  CounterStore
	logger *zap.Logger
	now    func() time.Time
}

func New(store CounterStore, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, logger: logger, now: time.Now}
}

func counterKey(identifier string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", identifier, windowStart.UnixMilli())
}

// CheckAndRecord reports whether the call identified by identifier is
// within quota under policy and, if so, records it. A store failure is
// logged and converted to an open result: availability wins over
// strictness when the counting backend is down.
func (l *Limiter) CheckAndRecord(ctx context.Context, identifier string, policy config.Policy) (Result, error) {
	if identifier == "" {
		return Result{}, fmt.Errorf("limiter: empty identifier")
	}
	if policy.Window <= 0 || policy.MaxRequests <= 0 {
		return Result{}, fmt.Errorf("limiter: invalid policy %+v", policy)
	}

	now := l.now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)
	key := counterKey(identifier, windowStart)

	count, allowed, err := l.store.Incr(ctx, key, int64(policy.MaxRequests), policy.Window)
	if err != nil {
		l.logger.Warn("counter store unavailable, failing open",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return Result{
			Limited:   false,
			Remaining: policy.MaxRequests,
			ResetAt:   resetAt,
			Degraded:  true,
		}, nil
	}

	remaining := policy.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Limited:   !allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
