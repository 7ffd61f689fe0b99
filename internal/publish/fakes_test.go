package publish_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/linkedin"
	"github.com/Shivang0/linkedinai/internal/repository"
)

// fakeStore mirrors the repository's claim and two-row update semantics
// in memory.
type fakeStore struct {
	mu        sync.Mutex
	posts     map[uuid.UUID]domain.Post
	scheduled map[uuid.UUID]domain.ScheduledPost
	users     map[uuid.UUID]domain.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:     make(map[uuid.UUID]domain.Post),
		scheduled: make(map[uuid.UUID]domain.ScheduledPost),
		users:     make(map[uuid.UUID]domain.User),
	}
}

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

func (s *fakeStore) GetPost(_ context.Context, id uuid.UUID) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return domain.Post{}, repository.ErrNotFound
	}
	return p, nil
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
	cur.ErrorMessage = ""
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

// stubPublisher returns a fixed result or error, recording calls.
type stubPublisher struct {
	mu     sync.Mutex
	result linkedin.Result
	err    error
	calls  int
	lastReq linkedin.Request
}

func (p *stubPublisher) Publish(_ context.Context, req linkedin.Request) (linkedin.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastReq = req
	return p.result, p.err
}

func (p *stubPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubResolver maps keys to fixed URLs.
type stubResolver struct {
	urls []string
	err  error
}

func (r *stubResolver) Resolve(context.Context, []string) ([]string, error) {
	return r.urls, r.err
}

// recordingNotifier captures terminal-failure notifications.
type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) PublishFailed(_ context.Context, _ domain.User, _ domain.Post, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
	return nil
}
