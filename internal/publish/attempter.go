// Package publish executes due publish jobs. One Attempter implements
// the whole validate→publish→update sequence; the queue worker and the
// fallback sweep both call it, so there is exactly one state machine no
// matter which trigger fired.
package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivang0/linkedinai/internal/domain"
	"github.com/Shivang0/linkedinai/internal/linkedin"
	"github.com/Shivang0/linkedinai/internal/queue"
	"github.com/Shivang0/linkedinai/internal/repository"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	ClaimForProcessing(ctx context.Context, id uuid.UUID, now time.Time) (domain.ScheduledPost, error)
	GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	MarkPublished(ctx context.Context, sp domain.ScheduledPost, postID, postURL string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, sp domain.ScheduledPost, reason string) error
	MarkRetry(ctx context.Context, id uuid.UUID, errMsg string) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error)
}

// MediaResolver turns stored media keys into fetchable URLs.
type MediaResolver interface {
	Resolve(ctx context.Context, keys []string) ([]string, error)
}

// Limiter gates outbound LinkedIn calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FailureNotifier is told about terminal failures. Best-effort.
type FailureNotifier interface {
	PublishFailed(ctx context.Context, user domain.User, post domain.Post, reason string) error
}

// Outcome classifies what an attempt did.
type Outcome int

const (
	// OutcomeSkipped: another caller already claimed or finished the
	// scheduled post. Nothing was done, nothing is wrong.
	OutcomeSkipped Outcome = iota
	// OutcomePublished: post is live, both rows updated.
	OutcomePublished
	// OutcomeRetry: transient failure, scheduled post released back to
	// pending for the queue's backoff to redeliver.
	OutcomeRetry
	// OutcomeFailed: terminal failure, both rows marked failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomePublished:
		return "published"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what one attempt produced. Err is set for retry and failed
// outcomes.
type Result struct {
	Outcome Outcome
	Err     error
}

// Attempter runs a single publish attempt for a scheduled post.
type Attempter struct {
	store     Store
	publisher linkedin.Publisher
	media     MediaResolver
	limiter   Limiter
	notifier  FailureNotifier
	log       *slog.Logger

	maxAttempts int
	now         func() time.Time
}

// NewAttempter wires the pipeline. limiter and notifier may be nil.
func NewAttempter(store Store, publisher linkedin.Publisher, media MediaResolver, limiter Limiter, notifier FailureNotifier, log *slog.Logger) *Attempter {
	return &Attempter{
		store:       store,
		publisher:   publisher,
		media:       media,
		limiter:     limiter,
		notifier:    notifier,
		log:         log,
		maxAttempts: queue.MaxAttempts,
		now:         time.Now,
	}
}

// Attempt claims the scheduled post and drives it to one of the four
// outcomes. The claim is a conditional update on pending/queued, so when
// the queue worker and the fallback sweep race, exactly one proceeds.
func (a *Attempter) Attempt(ctx context.Context, scheduledPostID uuid.UUID) (Result, error) {
	now := a.now()

	sp, err := a.store.ClaimForProcessing(ctx, scheduledPostID, now)
	if errors.Is(err, repository.ErrNotClaimed) || errors.Is(err, repository.ErrNotFound) {
		a.log.DebugContext(ctx, "scheduled post not claimable, skipping",
			slog.String("scheduled_post_id", scheduledPostID.String()))
		return Result{Outcome: OutcomeSkipped}, nil
	}
	if err != nil {
		return Result{}, err
	}

	log := a.log.With(
		slog.String("scheduled_post_id", sp.ID.String()),
		slog.String("post_id", sp.PostID.String()),
		slog.Int("attempt", sp.Attempts),
	)

	res, pubErr := a.publishOnce(ctx, sp)
	if pubErr == nil {
		if err := a.store.MarkPublished(ctx, sp, res.PostID, res.PostURL, a.now()); err != nil {
			// The external post exists but our rows don't say so.
			// Releasing back to pending would double-publish; surface
			// the error and let the operator reconcile.
			return Result{}, err
		}
		log.InfoContext(ctx, "post published",
			slog.String("linkedin_post_id", res.PostID))
		return Result{Outcome: OutcomePublished}, nil
	}

	if terminal(pubErr) || sp.Attempts >= a.maxAttempts {
		if err := a.store.MarkFailed(ctx, sp, pubErr.Error()); err != nil {
			return Result{}, err
		}
		log.ErrorContext(ctx, "post failed terminally", slog.Any("error", pubErr))
		a.notifyFailure(ctx, sp, pubErr)
		return Result{Outcome: OutcomeFailed, Err: pubErr}, nil
	}

	// Release the claim so the next delivery can re-claim.
	if err := a.store.MarkRetry(ctx, sp.ID, pubErr.Error()); err != nil {
		return Result{}, err
	}
	log.WarnContext(ctx, "publish attempt failed, will retry", slog.Any("error", pubErr))
	return Result{Outcome: OutcomeRetry, Err: pubErr}, nil
}

// publishOnce validates the user, resolves media, and makes the API
// call. Validation is fresh on every attempt: a subscription that lapsed
// since scheduling must block the publish.
func (a *Attempter) publishOnce(ctx context.Context, sp domain.ScheduledPost) (linkedin.Result, error) {
	post, err := a.store.GetPost(ctx, sp.PostID)
	if err != nil {
		return linkedin.Result{}, err
	}
	user, err := a.store.GetUser(ctx, sp.UserID)
	if err != nil {
		return linkedin.Result{}, err
	}
	if err := user.CanPublish(); err != nil {
		return linkedin.Result{}, err
	}

	var mediaURLs []string
	if a.media != nil && len(post.MediaKeys) > 0 {
		mediaURLs, err = a.media.Resolve(ctx, post.MediaKeys)
		if err != nil {
			return linkedin.Result{}, err
		}
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return linkedin.Result{}, err
		}
	}

	return a.publisher.Publish(ctx, linkedin.Request{
		AccessToken: user.LinkedInAccessToken,
		AuthorID:    user.LinkedInMemberID,
		Content:     post.Content,
		MediaURLs:   mediaURLs,
	})
}

func (a *Attempter) notifyFailure(ctx context.Context, sp domain.ScheduledPost, cause error) {
	if a.notifier == nil {
		return
	}
	post, err := a.store.GetPost(ctx, sp.PostID)
	if err != nil {
		a.log.WarnContext(ctx, "failure notification skipped", slog.Any("error", err))
		return
	}
	user, err := a.store.GetUser(ctx, sp.UserID)
	if err != nil {
		a.log.WarnContext(ctx, "failure notification skipped", slog.Any("error", err))
		return
	}
	if err := a.notifier.PublishFailed(ctx, user, post, cause.Error()); err != nil {
		a.log.WarnContext(ctx, "failure notification failed", slog.Any("error", err))
	}
}

// terminal reports whether retrying the attempt cannot succeed without
// user action: missing/rejected credentials, inactive account or
// subscription. Everything else (network, API 5xx, media resolution,
// rate-limit waits) is worth another attempt.
func terminal(err error) bool {
	return errors.Is(err, domain.ErrNoLinkedInCredential) ||
		errors.Is(err, domain.ErrAccountInactive) ||
		errors.Is(err, domain.ErrSubscriptionInactive) ||
		errors.Is(err, linkedin.ErrCredentialRejected)
}
