package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipfeed/writegate/config"
	"github.com/snipfeed/writegate/internal/limiter"
	"github.com/snipfeed/writegate/internal/storage/memory"
)

type errorStore struct{}

func (errorStore) Incr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	return 0, false, errors.New("storage error")
}

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestRateLimitHandler(t *testing.T) {
	t.Run("allows and sets headers", func(t *testing.T) {
		mw := NewRateLimit(limiter.New(memory.NewStore(), nil), nil)

		called := false
		req := httptest.NewRequest("GET", "/api/status", nil)
		req.Header.Set(SubjectHeader, "u1")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler(&called))(rec, req)

		require.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("rejects once the general quota is spent", func(t *testing.T) {
		mw := NewRateLimit(limiter.New(memory.NewStore(), nil), nil)
		noop := func(w http.ResponseWriter, r *http.Request) {}

		for i := 0; i < config.DefaultPolicy.MaxRequests; i++ {
			req := httptest.NewRequest("GET", "/api/status", nil)
			req.Header.Set(SubjectHeader, "u1")
			rec := httptest.NewRecorder()
			mw.Handler(noop)(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		req := httptest.NewRequest("GET", "/api/status", nil)
		req.Header.Set(SubjectHeader, "u1")
		rec := httptest.NewRecorder()
		mw.Handler(noop)(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "Rate limit exceeded", body["error"])
	})

	t.Run("fails open when the store errors", func(t *testing.T) {
		mw := NewRateLimit(limiter.New(errorStore{}, nil), nil)

		called := false
		req := httptest.NewRequest("GET", "/api/status", nil)
		rec := httptest.NewRecorder()

		mw.Handler(okHandler(&called))(rec, req)

		assert.True(t, called, "a counting outage must not block traffic")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous callers share a bucket distinct from users", func(t *testing.T) {
		store := memory.NewStore()
		mw := NewRateLimit(limiter.New(store, nil), nil)
		noop := func(w http.ResponseWriter, r *http.Request) {}

		anon := httptest.NewRequest("GET", "/api/status", nil)
		rec := httptest.NewRecorder()
		mw.Handler(noop)(rec, anon)
		require.Equal(t, http.StatusOK, rec.Code)

		authed := httptest.NewRequest("GET", "/api/status", nil)
		authed.Header.Set(SubjectHeader, "u1")
		rec = httptest.NewRecorder()
		mw.Handler(noop)(rec, authed)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"),
			"the anonymous request must not count against the user")
	})
}

func TestWithSubject(t *testing.T) {
	var got string
	h := WithSubject(func(w http.ResponseWriter, r *http.Request) {
		got = ContextSubjectResolver{}.Subject(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(SubjectHeader, "u42")
	h(httptest.NewRecorder(), req)
	assert.Equal(t, "u42", got)

	got = "unset"
	h(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "", got, "no header means anonymous")
}
