// Package api exposes the scheduling operations over HTTP for the
// dashboard. Authentication happens upstream; the authenticated user ID
// arrives in the X-User-ID header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/repository"
)

const userIDHeader = "X-User-ID"

// Scheduler is the scheduling surface the handlers drive.
type Scheduler interface {
	CreateAndSchedule(ctx context.Context, postID, userID uuid.UUID, scheduledFor time.Time, timezone string, rule *domain.RecurringRule) (domain.ScheduledPost, error)
	Cancel(ctx context.Context, scheduledPostID uuid.UUID) error
	Reschedule(ctx context.Context, scheduledPostID uuid.UUID, newTime time.Time) (domain.ScheduledPost, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error)
}

// HealthCheck probes a dependency.
type HealthCheck func(ctx context.Context) error

// Handler carries the API dependencies.
type Handler struct {
	scheduler Scheduler
	checks    map[string]HealthCheck
	log       *slog.Logger
}

// New creates the API handler. checks maps dependency names to their
// healthcheck probes for /healthz.
func New(scheduler Scheduler, checks map[string]HealthCheck, log *slog.Logger) *Handler {
	return &Handler{
		scheduler: scheduler,
		checks:    checks,
		log:       log,
	}
}

// Router builds the HTTP routing table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/posts/{postID}/schedule", h.schedulePost)
		r.Get("/scheduled-posts", h.listScheduledPosts)
		r.Post("/scheduled-posts/{id}/cancel", h.cancelScheduledPost)
		r.Post("/scheduled-posts/{id}/reschedule", h.rescheduleScheduledPost)
	})

	return r
}

type scheduleRequest struct {
	ScheduledFor time.Time          `json:"scheduledFor"`
	Timezone     string             `json:"timezone"`
	Recurrence   *recurrenceRequest `json:"recurrence,omitempty"`
}

type recurrenceRequest struct {
	Frequency  domain.Frequency `json:"frequency"`
	Interval   int              `json:"interval"`
	DaysOfWeek []time.Weekday   `json:"daysOfWeek,omitempty"`
	DayOfMonth int              `json:"dayOfMonth,omitempty"`
	TimeOfDay  string           `json:"timeOfDay,omitempty"`
	EndDate    *time.Time       `json:"endDate,omitempty"`
}

func (r *recurrenceRequest) toRule() *domain.RecurringRule {
	if r == nil {
		return nil
	}
	return &domain.RecurringRule{
		Frequency:  r.Frequency,
		Interval:   r.Interval,
		DaysOfWeek: r.DaysOfWeek,
		DayOfMonth: r.DayOfMonth,
		TimeOfDay:  r.TimeOfDay,
		EndDate:    r.EndDate,
	}
}

func (h *Handler) schedulePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	postID, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sp, err := h.scheduler.CreateAndSchedule(r.Context(), postID, userID, req.ScheduledFor, req.Timezone, req.Recurrence.toRule())
	if err != nil {
		h.writeSchedulerError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sp)
}

func (h *Handler) listScheduledPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	posts, err := h.scheduler.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeSchedulerError(w, r, err)
		return
	}
	if posts == nil {
		posts = []domain.ScheduledPost{}
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) cancelScheduledPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid scheduled post id")
		return
	}

	if err := h.scheduler.Cancel(r.Context(), id); err != nil {
		h.writeSchedulerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduledFor"`
}

func (h *Handler) rescheduleScheduledPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid scheduled post id")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sp, err := h.scheduler.Reschedule(r.Context(), id, req.ScheduledFor)
	if err != nil {
		h.writeSchedulerError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	h.writeJSON(w, status, resp)
}

// userID extracts the authenticated user from the request, writing the
// error response itself when absent or malformed.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get(userIDHeader))
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "missing or invalid user identity")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeSchedulerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduledInPast), errors.Is(err, domain.ErrInvalidRecurrence):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, repository.ErrTerminal):
		h.writeError(w, http.StatusConflict, "scheduled post already completed or failed")
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "scheduled post not found")
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", slog.Any("error", err))
	}
}
