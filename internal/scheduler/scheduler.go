// Package scheduler owns the Post↔ScheduledPost↔queue-job linkage. No
// other component creates, moves, or destroys it: the publish pipeline
// only ever advances job status, and the API layer only calls in here.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/repository"
)

const expandBatchSize = 50

// Store is the persistence surface the scheduler needs.
type Store interface {
	GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error)
	CreatePost(ctx context.Context, p domain.Post) error
	CreateScheduledPost(ctx context.Context, sp domain.ScheduledPost) error
	GetScheduledPost(ctx context.Context, id uuid.UUID) (domain.ScheduledPost, error)
	MarkQueued(ctx context.Context, id uuid.UUID, jobID int64) error
	CancelScheduledPost(ctx context.Context, id uuid.UUID) error
	ResetForReschedule(ctx context.Context, id uuid.UUID, newTime time.Time) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error)
	CreateRecurringRule(ctx context.Context, rule domain.RecurringRule) error
	ListDueRecurringRules(ctx context.Context, now time.Time, window time.Duration, limit int) ([]domain.RecurringRule, error)
	AdvanceRecurringRule(ctx context.Context, id uuid.UUID, next *time.Time, generatedAt time.Time) error
}

// JobQueue is the delayed-job surface the scheduler drives.
type JobQueue interface {
	Enqueue(ctx context.Context, scheduledPostID uuid.UUID, queueKey string, scheduledFor time.Time) (int64, error)
	Cancel(ctx context.Context, jobID int64) error
}

// Scheduler orchestrates scheduling, cancellation, rescheduling, and
// recurrence expansion.
type Scheduler struct {
	store Store
	queue JobQueue
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Scheduler.
func New(store Store, queue JobQueue, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store: store,
		queue: queue,
		log:   log,
		now:   time.Now,
	}
}

// Schedule enqueues the publish job for an existing scheduled post and
// records the queue reference. Rejects target times not strictly in the
// future. This is the sole path into jobStatus=queued.
func (s *Scheduler) Schedule(ctx context.Context, scheduledPostID uuid.UUID) (domain.ScheduledPost, error) {
	sp, err := s.store.GetScheduledPost(ctx, scheduledPostID)
	if err != nil {
		return domain.ScheduledPost{}, err
	}

	if sp.JobStatus.Terminal() {
		return domain.ScheduledPost{}, domain.ErrInvalidTransition
	}
	if !sp.ScheduledFor.After(s.now()) {
		return domain.ScheduledPost{}, domain.ErrScheduledInPast
	}

	return s.enqueue(ctx, sp)
}

// enqueue submits the job and persists the reference. No future check:
// recurrence expansion may legitimately schedule an occurrence whose
// time just slipped past, and the queue clamps that delay to zero.
func (s *Scheduler) enqueue(ctx context.Context, sp domain.ScheduledPost) (domain.ScheduledPost, error) {
	jobID, err := s.queue.Enqueue(ctx, sp.ID, sp.QueueKey(), sp.ScheduledFor)
	if err != nil {
		return domain.ScheduledPost{}, fmt.Errorf("scheduler: enqueue: %w", err)
	}

	if err := s.store.MarkQueued(ctx, sp.ID, jobID); err != nil {
		return domain.ScheduledPost{}, err
	}

	sp.JobID = &jobID
	sp.JobStatus = domain.JobStatusQueued

	s.log.InfoContext(ctx, "post scheduled",
		slog.String("scheduled_post_id", sp.ID.String()),
		slog.Int64("job_id", jobID),
		slog.Time("scheduled_for", sp.ScheduledFor),
	)
	return sp, nil
}

// CreateAndSchedule creates the scheduled post for an existing draft,
// flips the post to scheduled, and enqueues the job. A non-nil rule
// makes the post recurring: the job covers the first occurrence, and the
// stored rule drives expansion of the later ones.
func (s *Scheduler) CreateAndSchedule(ctx context.Context, postID, userID uuid.UUID, scheduledFor time.Time, timezone string, rule *domain.RecurringRule) (domain.ScheduledPost, error) {
	if !scheduledFor.After(s.now()) {
		return domain.ScheduledPost{}, domain.ErrScheduledInPast
	}
	if rule != nil && !rule.Frequency.Valid() {
		return domain.ScheduledPost{}, domain.ErrInvalidRecurrence
	}
	if timezone == "" {
		timezone = "UTC"
	}

	now := s.now()
	sp := domain.ScheduledPost{
		ID:           uuid.New(),
		PostID:       postID,
		UserID:       userID,
		ScheduledFor: scheduledFor,
		Timezone:     timezone,
		IsRecurring:  rule != nil,
		JobStatus:    domain.JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateScheduledPost(ctx, sp); err != nil {
		return domain.ScheduledPost{}, err
	}

	if rule != nil {
		next, err := rule.Advance(scheduledFor)
		if err != nil {
			return domain.ScheduledPost{}, err
		}
		stored := *rule
		stored.ID = uuid.New()
		stored.ScheduledPostID = sp.ID
		stored.NextOccurrenceAt = nil
		if !stored.PastEnd(next) {
			stored.NextOccurrenceAt = &next
		}
		if err := s.store.CreateRecurringRule(ctx, stored); err != nil {
			return domain.ScheduledPost{}, err
		}
	}

	return s.enqueue(ctx, sp)
}

// Cancel removes the queue job if one exists and tears the scheduled
// post down, reverting the post to draft. Safe to call repeatedly: a
// missing job or an already-removed scheduled post is a no-op. Callers
// gate on non-terminal job status; cancellation of a post already being
// processed does not interrupt the in-flight publish call.
func (s *Scheduler) Cancel(ctx context.Context, scheduledPostID uuid.UUID) error {
	sp, err := s.store.GetScheduledPost(ctx, scheduledPostID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil // already canceled and removed
	}
	if err != nil {
		return err
	}

	// Completed and failed posts are immutable: canceling one would
	// unpublish live content.
	if !domain.CanTransition(sp.JobStatus, domain.JobStatusCanceled) {
		return domain.ErrInvalidTransition
	}

	if sp.JobID != nil {
		if err := s.queue.Cancel(ctx, *sp.JobID); err != nil {
			return fmt.Errorf("scheduler: cancel job: %w", err)
		}
	}

	if err := s.store.CancelScheduledPost(ctx, sp.ID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "scheduled post canceled",
		slog.String("scheduled_post_id", sp.ID.String()))
	return nil
}

// Reschedule moves the scheduled post to a new future time: the old job
// goes away, the row resets to pending, and a fresh job is enqueued.
// The only way a post's target time changes after creation.
func (s *Scheduler) Reschedule(ctx context.Context, scheduledPostID uuid.UUID, newTime time.Time) (domain.ScheduledPost, error) {
	if !newTime.After(s.now()) {
		return domain.ScheduledPost{}, domain.ErrScheduledInPast
	}

	sp, err := s.store.GetScheduledPost(ctx, scheduledPostID)
	if err != nil {
		return domain.ScheduledPost{}, err
	}

	// A completed post cannot come back to pending: rescheduling it
	// would publish the same content twice.
	if sp.JobStatus.Terminal() {
		return domain.ScheduledPost{}, domain.ErrInvalidTransition
	}

	if sp.JobID != nil {
		if err := s.queue.Cancel(ctx, *sp.JobID); err != nil {
			return domain.ScheduledPost{}, fmt.Errorf("scheduler: cancel job: %w", err)
		}
	}

	if err := s.store.ResetForReschedule(ctx, sp.ID, newTime); err != nil {
		return domain.ScheduledPost{}, err
	}

	sp.ScheduledFor = newTime
	sp.JobID = nil
	sp.JobStatus = domain.JobStatusPending

	return s.enqueue(ctx, sp)
}

// ListForUser returns the user's in-flight scheduled posts.
func (s *Scheduler) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error) {
	return s.store.ListForUser(ctx, userID)
}

// ExpandRecurring materializes upcoming occurrences of recurring rules
// inside the lookahead window. Each occurrence becomes an independent
// one-shot post with its own scheduled post and queue job, so a retry or
// cancellation on one occurrence never disturbs its siblings. Rules past
// their end date are exhausted (nextOccurrenceAt set to null). Per-rule
// failures are isolated; the returned count is occurrences produced.
func (s *Scheduler) ExpandRecurring(ctx context.Context, lookAhead time.Duration) (int, error) {
	now := s.now()

	rules, err := s.store.ListDueRecurringRules(ctx, now, lookAhead, expandBatchSize)
	if err != nil {
		return 0, err
	}

	produced := 0
	for _, rule := range rules {
		n, err := s.expandRule(ctx, rule, now)
		if err != nil {
			s.log.ErrorContext(ctx, "recurring rule expansion failed",
				slog.String("rule_id", rule.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		produced += n
	}
	return produced, nil
}

func (s *Scheduler) expandRule(ctx context.Context, rule domain.RecurringRule, now time.Time) (int, error) {
	if rule.Exhausted() {
		return 0, nil
	}
	occurrence := *rule.NextOccurrenceAt

	if rule.PastEnd(occurrence) {
		return 0, s.store.AdvanceRecurringRule(ctx, rule.ID, nil, now)
	}

	template, err := s.store.GetScheduledPost(ctx, rule.ScheduledPostID)
	if err != nil {
		return 0, err
	}
	source, err := s.store.GetPost(ctx, template.PostID)
	if err != nil {
		return 0, err
	}

	clone := source.CloneDraft(now)
	if err := s.store.CreatePost(ctx, clone); err != nil {
		return 0, err
	}

	sp := domain.ScheduledPost{
		ID:           uuid.New(),
		PostID:       clone.ID,
		UserID:       clone.UserID,
		ScheduledFor: occurrence,
		Timezone:     template.Timezone,
		IsRecurring:  false,
		JobStatus:    domain.JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateScheduledPost(ctx, sp); err != nil {
		return 0, err
	}
	if _, err := s.enqueue(ctx, sp); err != nil {
		return 0, err
	}

	next, err := rule.Advance(occurrence)
	if err != nil {
		return 0, err
	}

	var nextPtr *time.Time
	if !rule.PastEnd(next) {
		nextPtr = &next
	}
	if err := s.store.AdvanceRecurringRule(ctx, rule.ID, nextPtr, now); err != nil {
		return 0, err
	}

	return 1, nil
}
