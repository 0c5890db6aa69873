package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trivia-progression-service/internal/app"
	"trivia-progression-service/internal/domain"
	"trivia-progression-service/internal/leaderboard"
)

// Handler exposes the daily-challenge and leaderboard operations over HTTP.
type Handler struct {
	completions *app.CompletionService
	boards      *leaderboard.Service
	auth        *Authenticator
	log         *zap.SugaredLogger
}

func NewHandler(completions *app.CompletionService, boards *leaderboard.Service, auth *Authenticator, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{completions: completions, boards: boards, auth: auth, log: log}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(requestLogMiddleware(h.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Get("/daily/status", h.handleStatus)
		r.Post("/daily/status", h.handleComplete)
		r.Get("/progression", h.handleProgression)
		r.Get("/leaderboard/{quizID}", h.handleLeaderboard)
	})
	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	result, err := h.completions.Status(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type completeRequest struct {
	QuizID string `json:"quizId"`
	Score  int    `json:"score"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrQuizIDRequired)
		return
	}
	result, err := h.completions.RecordCompletion(r.Context(), id.UserID, id.DisplayName, req.QuizID, req.Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleProgression(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	p, err := h.completions.Progression(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	lb, err := h.boards.Entries(r.Context(), quizID, period, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit < len(lb.Entries) {
			lb.Entries = lb.Entries[:limit]
		}
	}
	writeJSON(w, http.StatusOK, lb)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy to HTTP statuses so clients can
// tell retryable failures (conflict, store) from terminal ones.
func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrQuizIDRequired),
		errors.Is(err, domain.ErrScoreOutOfRange),
		errors.Is(err, domain.ErrXPGainOutOfRange),
		errors.Is(err, domain.ErrCoinGainOutOfRange),
		errors.Is(err, domain.ErrInvalidPeriod):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
