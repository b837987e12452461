package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/snipfeed/writegate/config"
	"github.com/snipfeed/writegate/internal/limiter"
)

// SubjectHeader carries the authenticated subject id in the demo
// surface. Production sits behind the identity provider, which resolves
// the subject from the session instead.
const SubjectHeader = "X-Subject-ID"

// RateLimit applies the general policy per caller before a request
// reaches any handler. Action-specific policies are enforced by the
// action guards, not here.
type RateLimit struct {
	limiter *limiter.Limiter
	logger  *zap.Logger
}

func NewRateLimit(l *limiter.Limiter, logger *zap.Logger) *RateLimit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimit{limiter: l, logger: logger}
}

func (m *RateLimit) Handler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := limiter.BuildIdentifier(r.Header.Get(SubjectHeader), config.ActionGeneral, "")

		res, err := m.limiter.CheckAndRecord(r.Context(), id, config.DefaultPolicy)
		if err != nil {
			m.logger.Error("rate limit check failed", zap.Error(err), zap.String("identifier", id))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		setRateLimitHeaders(w, config.DefaultPolicy.MaxRequests, res)

		if res.Limited {
			m.logger.Warn("rate limit exceeded",
				zap.String("identifier", id),
				zap.String("path", r.URL.Path),
			)
			sendRateLimitError(w, res)
			return
		}

		next(w, r)
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, res limiter.Result) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
	if !res.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetAt.Unix()))
	}
}

func sendRateLimitError(w http.ResponseWriter, res limiter.Result) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(res.ResetAt).Seconds())+1))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":    "Rate limit exceeded",
		"reset_at": res.ResetAt.Unix(),
	})
}
