package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snipfeed/writegate/internal/actions"
	"github.com/snipfeed/writegate/internal/vote"
)

// Handlers exposes the guarded write actions over JSON. This is the
// demo surface: the production app calls the actions service directly
// from its own request handlers.
type Handlers struct {
	actions *actions.Service
	logger  *zap.Logger
}

func New(svc *actions.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{actions: svc, logger: logger}
}

type voteRequest struct {
	PostID    string `json:"post_id"`
	Direction string `json:"direction"`
}

type voteResponse struct {
	State   string `json:"state"`
	Changed bool   `json:"changed"`
}

// Vote handles POST /api/votes.
func (h *Handlers) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	direction, err := vote.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid direction")
		return
	}

	outcome, err := h.actions.Vote(r.Context(), postID, direction)
	if err != nil {
		h.writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voteResponse{State: string(outcome.State), Changed: outcome.Changed})
}

// CreatePost handles POST /api/posts. Post persistence lives outside
// this core; the handler only runs the guard and acknowledges.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.GuardCreatePost(r.Context()); err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "allowed"})
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) writeActionError(w http.ResponseWriter, err error) {
	var throttled *actions.ThrottledError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", throttled.ResetAt.Format(time.RFC3339))
		writeError(w, http.StatusTooManyRequests, "please wait before trying again")
	case errors.Is(err, actions.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "sign in to continue")
	case errors.Is(err, vote.ErrRetryable):
		writeError(w, http.StatusServiceUnavailable, "temporary failure, please retry")
	default:
		h.logger.Error("action failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
