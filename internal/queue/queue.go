// Package queue wraps River with the publish pipeline's job shape and
// delivery policy. Everything above it deals in scheduled-post IDs and
// queue job IDs; River's own types stay inside.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	// QueueName is the dedicated queue for LinkedIn publish jobs.
	QueueName = "publish"

	// MaxAttempts is the total delivery budget per job: the first run
	// plus two backoff-spaced retries.
	MaxAttempts = 3

	// backoffBase is the first retry delay; subsequent retries double.
	backoffBase = time.Minute

	// Retention bounds queue storage growth while keeping enough
	// history to debug publish problems.
	completedRetention = 7 * 24 * time.Hour
	discardedRetention = 30 * 24 * time.Hour

	defaultMaxWorkers = 5
)

// PublishArgs is the payload carried by every publish job. The queue key
// derived from the scheduled post makes the job's identity deterministic:
// scheduling the same post twice dedups instead of duplicating.
type PublishArgs struct {
	ScheduledPostID uuid.UUID `json:"scheduled_post_id"`
	QueueKey        string    `json:"queue_key"`
}

func (PublishArgs) Kind() string { return "publish_post" }

// InsertOpts applies the per-job delivery policy.
func (PublishArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: MaxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	}
}

// Config holds queue tuning knobs.
type Config struct {
	// Concurrent publish jobs per process. Kept low because every job
	// hits the LinkedIn API.
	MaxWorkers int `env:"QUEUE_MAX_WORKERS" envDefault:"5"`
}

// Queue is the typed publish queue.
type Queue struct {
	client *river.Client[pgx.Tx]
	log    *slog.Logger
}

// New builds the River client. Workers may be nil for an enqueue-only
// client (API processes that never consume jobs).
func New(pool *pgxpool.Pool, workers *river.Workers, cfg Config, log *slog.Logger) (*Queue, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}

	riverCfg := &river.Config{
		Logger:                      log,
		RetryPolicy:                 &publishRetryPolicy{},
		CompletedJobRetentionPeriod: completedRetention,
		DiscardedJobRetentionPeriod: discardedRetention,
	}
	if workers != nil {
		riverCfg.Workers = workers
		riverCfg.Queues = map[string]river.QueueConfig{
			QueueName: {MaxWorkers: cfg.MaxWorkers},
		}
	}

	client, err := river.NewClient(riverpgxv5.New(pool), riverCfg)
	if err != nil {
		return nil, fmt.Errorf("queue: create client: %w", err)
	}

	return &Queue{client: client, log: log}, nil
}

// Enqueue inserts a publish job delayed until scheduledFor. A target
// time already in the past runs immediately (delay clamps to zero).
// Returns the queue job ID.
func (q *Queue) Enqueue(ctx context.Context, scheduledPostID uuid.UUID, queueKey string, scheduledFor time.Time) (int64, error) {
	opts := &river.InsertOpts{}
	if scheduledFor.After(time.Now()) {
		opts.ScheduledAt = scheduledFor
	}

	res, err := q.client.Insert(ctx, PublishArgs{
		ScheduledPostID: scheduledPostID,
		QueueKey:        queueKey,
	}, opts)
	if err != nil {
		return 0, errors.Join(ErrQueueBackend, err)
	}

	if res.UniqueSkippedAsDuplicate {
		q.log.DebugContext(ctx, "publish job already enqueued",
			slog.String("scheduled_post_id", scheduledPostID.String()),
			slog.Int64("job_id", res.Job.ID),
		)
	}

	return res.Job.ID, nil
}

// Cancel removes a pending job. A job that no longer exists (already
// consumed or previously removed) is a no-op, so cancellation is safe to
// call any number of times.
func (q *Queue) Cancel(ctx context.Context, jobID int64) error {
	_, err := q.client.JobCancel(ctx, jobID)
	if errors.Is(err, rivertype.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrQueueBackend, err)
	}
	return nil
}

// Lookup fetches a job for inspection. Absence is reported via the bool,
// not an error.
func (q *Queue) Lookup(ctx context.Context, jobID int64) (*rivertype.JobRow, bool, error) {
	job, err := q.client.JobGet(ctx, jobID)
	if errors.Is(err, rivertype.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(ErrQueueBackend, err)
	}
	return job, true, nil
}

// Start begins consuming jobs. Only valid for clients built with workers.
func (q *Queue) Start(ctx context.Context) error {
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("queue: start: %w", err)
	}
	q.log.Info("publish queue started", slog.String("queue", QueueName))
	return nil
}

// Stop drains in-flight jobs and shuts the client down.
func (q *Queue) Stop(ctx context.Context) error {
	if err := q.client.Stop(ctx); err != nil {
		return fmt.Errorf("queue: stop: %w", err)
	}
	q.log.Info("publish queue stopped")
	return nil
}

// publishRetryPolicy spaces retries exponentially from backoffBase:
// 1m, 2m, 4m, ...
type publishRetryPolicy struct{}

func (publishRetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	attempt := max(job.Attempt, 1)
	return time.Now().Add(backoffBase << (attempt - 1))
}
