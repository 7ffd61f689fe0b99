package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivang0/linkedinai/internal/api"
	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/repository"
)

type fakeScheduler struct {
	scheduled  []domain.ScheduledPost
	lastRule   *domain.RecurringRule
	canceled   []uuid.UUID
	createErr  error
	cancelErr  error
	reschedErr error
	listErr    error
}

func (f *fakeScheduler) CreateAndSchedule(_ context.Context, postID, userID uuid.UUID, scheduledFor time.Time, timezone string, rule *domain.RecurringRule) (domain.ScheduledPost, error) {
	if f.createErr != nil {
		return domain.ScheduledPost{}, f.createErr
	}
	if rule != nil && !rule.Frequency.Valid() {
		return domain.ScheduledPost{}, domain.ErrInvalidRecurrence
	}
	sp := domain.ScheduledPost{
		ID:           uuid.New(),
		PostID:       postID,
		UserID:       userID,
		ScheduledFor: scheduledFor,
		Timezone:     timezone,
		IsRecurring:  rule != nil,
		JobStatus:    domain.JobStatusQueued,
	}
	f.scheduled = append(f.scheduled, sp)
	f.lastRule = rule
	return sp, nil
}

func (f *fakeScheduler) Cancel(_ context.Context, id uuid.UUID) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *fakeScheduler) Reschedule(_ context.Context, id uuid.UUID, newTime time.Time) (domain.ScheduledPost, error) {
	if f.reschedErr != nil {
		return domain.ScheduledPost{}, f.reschedErr
	}
	return domain.ScheduledPost{ID: id, ScheduledFor: newTime, JobStatus: domain.JobStatusQueued}, nil
}

func (f *fakeScheduler) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ScheduledPost
	for _, sp := range f.scheduled {
		if sp.UserID == userID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func newServer(t *testing.T, s *fakeScheduler, checks map[string]api.HealthCheck) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.New(s, checks, log).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSchedulePost(t *testing.T) {
	t.Parallel()

	s := &fakeScheduler{}
	srv := newServer(t, s, nil)
	userID := uuid.New()
	postID := uuid.New()
	target := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/schedule", userID.String(), map[string]any{
		"scheduledFor": target,
		"timezone":     "Europe/Berlin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sp domain.ScheduledPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sp))
	assert.Equal(t, postID, sp.PostID)
	assert.Equal(t, userID, sp.UserID)
	assert.True(t, target.Equal(sp.ScheduledFor))
	assert.Equal(t, "Europe/Berlin", sp.Timezone)
	require.Len(t, s.scheduled, 1)
}

func TestSchedulePost_Recurring(t *testing.T) {
	t.Parallel()

	s := &fakeScheduler{}
	srv := newServer(t, s, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
		"recurrence": map[string]any{
			"frequency":  "weekly",
			"interval":   2,
			"daysOfWeek": []int{1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sp domain.ScheduledPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sp))
	assert.True(t, sp.IsRecurring)
	require.NotNil(t, s.lastRule)
	assert.Equal(t, domain.FrequencyWeekly, s.lastRule.Frequency)
	assert.Equal(t, 2, s.lastRule.Interval)
	assert.Equal(t, []time.Weekday{time.Monday}, s.lastRule.DaysOfWeek)
}

func TestSchedulePost_InvalidRecurrence(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
		"recurrence":   map[string]any{"frequency": "fortnightly"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSchedulePost_PastTime(t *testing.T) {
	t.Parallel()

	s := &fakeScheduler{createErr: domain.ErrScheduledInPast}
	srv := newServer(t, s, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(-time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSchedulePost_BadInput(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{}, nil)

	t.Run("missing user header", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed post id", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/not-a-uuid/schedule", uuid.NewString(), map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set("X-User-ID", uuid.NewString())
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCancelScheduledPost(t *testing.T) {
	t.Parallel()

	s := &fakeScheduler{}
	srv := newServer(t, s, nil)
	id := uuid.New()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/scheduled-posts/"+id.String()+"/cancel", uuid.NewString(), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, s.canceled, 1)
	assert.Equal(t, id, s.canceled[0])
}

func TestRescheduleScheduledPost(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{}, nil)
	id := uuid.New()
	target := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/scheduled-posts/"+id.String()+"/reschedule", uuid.NewString(), map[string]any{
		"scheduledFor": target,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sp domain.ScheduledPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sp))
	assert.True(t, target.Equal(sp.ScheduledFor))
}

func TestCancelScheduledPost_CompletedConflicts(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{cancelErr: domain.ErrInvalidTransition}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/scheduled-posts/"+uuid.NewString()+"/cancel", uuid.NewString(), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRescheduleScheduledPost_CompletedConflicts(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{reschedErr: repository.ErrTerminal}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/scheduled-posts/"+uuid.NewString()+"/reschedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRescheduleScheduledPost_NotFound(t *testing.T) {
	t.Parallel()

	srv := newServer(t, &fakeScheduler{reschedErr: repository.ErrNotFound}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/scheduled-posts/"+uuid.NewString()+"/reschedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListScheduledPosts(t *testing.T) {
	t.Parallel()

	s := &fakeScheduler{}
	srv := newServer(t, s, nil)
	userID := uuid.New()

	// Empty list serializes as [], not null.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/scheduled-posts", userID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", userID.String(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
	})
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/posts/"+uuid.NewString()+"/schedule", uuid.NewString(), map[string]any{
		"scheduledFor": time.Now().Add(time.Hour),
	})

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/scheduled-posts", userID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []domain.ScheduledPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 1, "only the caller's posts are listed")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		srv := newServer(t, &fakeScheduler{}, map[string]api.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return nil },
		})

		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		srv := newServer(t, &fakeScheduler{}, map[string]api.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "ok", body.Checks["postgres"])
		assert.Contains(t, body.Checks["redis"], "connection refused")
	})
}
