package scheduler_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/repository"
)

// fakeStore implements the scheduler's and the publish pipeline's
// persistence surfaces in memory, with the repository's semantics.
type fakeStore struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]domain.Post
	scheduled map[uuid.UUID]domain.ScheduledPost
	users     map[uuid.UUID]domain.User
	rules     map[uuid.UUID]domain.RecurringRule
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:     make(map[uuid.UUID]domain.Post),
		scheduled: make(map[uuid.UUID]domain.ScheduledPost),
		users:     make(map[uuid.UUID]domain.User),
		rules:     make(map[uuid.UUID]domain.RecurringRule),
	}
}

func (s *fakeStore) GetPost(_ context.Context, id uuid.UUID) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) CreatePost(_ context.Context, p domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
	return nil
}

func (s *fakeStore) CreateScheduledPost(_ context.Context, sp domain.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[sp.ID] = sp
	p := s.posts[sp.PostID]
	p.Status = domain.PostStatusScheduled
	s.posts[sp.PostID] = p
	return nil
}

func (s *fakeStore) GetScheduledPost(_ context.Context, id uuid.UUID) (domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.scheduled[id]
	if !ok {
		return domain.ScheduledPost{}, repository.ErrNotFound
	}
	return sp, nil
}

func (s *fakeStore) MarkQueued(_ context.Context, id uuid.UUID, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.scheduled[id]
	if !ok {
		return repository.ErrNotFound
	}
	sp.JobID = &jobID
	sp.JobStatus = domain.JobStatusQueued
	s.scheduled[id] = sp
	return nil
}

func (s *fakeStore) CancelScheduledPost(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.scheduled[id]
	if !ok {
		return nil // already removed
	}
	if sp.JobStatus.Terminal() {
		return repository.ErrTerminal
	}
	delete(s.scheduled, id)
	p := s.posts[sp.PostID]
	p.Status = domain.PostStatusDraft
	s.posts[sp.PostID] = p
	return nil
}

func (s *fakeStore) ResetForReschedule(_ context.Context, id uuid.UUID, newTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.scheduled[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sp.JobStatus.Terminal() {
		return repository.ErrTerminal
	}
	sp.ScheduledFor = newTime
	sp.JobID = nil
	sp.JobStatus = domain.JobStatusPending
	sp.ErrorMessage = ""
	s.scheduled[id] = sp
	return nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledPost
	for _, sp := range s.scheduled {
		if sp.UserID == userID && !sp.JobStatus.Terminal() {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateRecurringRule(_ context.Context, rule domain.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

func (s *fakeStore) ListDueRecurringRules(_ context.Context, now time.Time, window time.Duration, limit int) ([]domain.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RecurringRule
	for _, rule := range s.rules {
		if len(out) >= limit {
			break
		}
		if rule.NextOccurrenceAt != nil && rule.NextOccurrenceAt.Before(now.Add(window)) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *fakeStore) AdvanceRecurringRule(_ context.Context, id uuid.UUID, next *time.Time, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return repository.ErrNotFound
	}
	rule.NextOccurrenceAt = next
	rule.LastGeneratedAt = &generatedAt
	s.rules[id] = rule
	return nil
}

// Publish-pipeline surface, for the end-to-end test.

func (s *fakeStore) ClaimForProcessing(_ context.Context, id uuid.UUID, now time.Time) (domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.scheduled[id]
	if !ok {
		return domain.ScheduledPost{}, repository.ErrNotFound
	}
	if sp.JobStatus != domain.JobStatusPending && sp.JobStatus != domain.JobStatusQueued {
		return domain.ScheduledPost{}, repository.ErrNotClaimed
	}
	sp.JobStatus = domain.JobStatusProcessing
	sp.Attempts++
	sp.LastAttemptAt = &now
	s.scheduled[id] = sp
	return sp, nil
}

func (s *fakeStore) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, sp domain.ScheduledPost, postID, postURL string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.posts[sp.PostID]
	p.Status = domain.PostStatusPublished
	p.LinkedInPostID = postID
	p.LinkedInPostURL = postURL
	p.PublishedAt = &publishedAt
	s.posts[sp.PostID] = p
	cur := s.scheduled[sp.ID]
	cur.JobStatus = domain.JobStatusCompleted
	s.scheduled[sp.ID] = cur
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, sp domain.ScheduledPost, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.posts[sp.PostID]
	p.Status = domain.PostStatusFailed
	p.FailureReason = reason
	s.posts[sp.PostID] = p
	cur := s.scheduled[sp.ID]
	cur.JobStatus = domain.JobStatusFailed
	cur.ErrorMessage = reason
	s.scheduled[sp.ID] = cur
	return nil
}

func (s *fakeStore) MarkRetry(_ context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.scheduled[id]
	cur.JobStatus = domain.JobStatusPending
	cur.ErrorMessage = errMsg
	s.scheduled[id] = cur
	return nil
}

func (s *fakeStore) ListOverdue(_ context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledPost
	for _, sp := range s.scheduled {
		if len(out) >= limit {
			break
		}
		if !sp.ScheduledFor.After(now) &&
			(sp.JobStatus == domain.JobStatusPending || sp.JobStatus == domain.JobStatusQueued) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *fakeStore) scheduledPost(id uuid.UUID) domain.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled[id]
}

func (s *fakeStore) post(id uuid.UUID) domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[id]
}

// fakeQueue dedups by queue key the way the real queue's unique args do.
type fakeQueue struct {
	mu         sync.Mutex
	nextID     int64
	jobs       map[int64]fakeJob // active jobs
	byKey      map[string]int64
	canceled   []int64
	enqueueErr error
}

type fakeJob struct {
	key          string
	scheduledFor time.Time
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		jobs:  make(map[int64]fakeJob),
		byKey: make(map[string]int64),
	}
}

func (q *fakeQueue) Enqueue(_ context.Context, _ uuid.UUID, queueKey string, scheduledFor time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return 0, q.enqueueErr
	}
	if id, ok := q.byKey[queueKey]; ok {
		return id, nil // duplicate skipped, same identity
	}
	q.nextID++
	q.jobs[q.nextID] = fakeJob{key: queueKey, scheduledFor: scheduledFor}
	q.byKey[queueKey] = q.nextID
	return q.nextID, nil
}

func (q *fakeQueue) Cancel(_ context.Context, jobID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.canceled = append(q.canceled, jobID)
	if job, ok := q.jobs[jobID]; ok {
		delete(q.byKey, job.key)
		delete(q.jobs, jobID)
	}
	return nil
}

func (q *fakeQueue) activeJobs() []fakeJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]fakeJob, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j)
	}
	return out
}
