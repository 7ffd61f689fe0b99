package publish

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/Shivang0/linkedinai/internal/queue"
)

// Worker consumes publish jobs from the queue. All decisions live in the
// Attempter; the worker only translates outcomes into queue semantics.
type Worker struct {
	river.WorkerDefaults[queue.PublishArgs]

	attempter *Attempter
	log       *slog.Logger
}

// NewWorker creates the queue consumer.
func NewWorker(attempter *Attempter, log *slog.Logger) *Worker {
	return &Worker{attempter: attempter, log: log}
}

// Work runs one delivery of a publish job.
//
//   - published/skipped: the job completes.
//   - terminal failure: river.JobCancel stops the job immediately
//     instead of burning through the remaining backoff schedule — a
//     missing credential will not fix itself in two minutes.
//   - transient failure: the error propagates so the queue's retry
//     bookkeeping and backoff redeliver the job.
func (w *Worker) Work(ctx context.Context, job *river.Job[queue.PublishArgs]) error {
	res, err := w.attempter.Attempt(ctx, job.Args.ScheduledPostID)
	if err != nil {
		w.log.ErrorContext(ctx, "publish attempt errored",
			slog.String("scheduled_post_id", job.Args.ScheduledPostID.String()),
			slog.Int64("job_id", job.ID),
			slog.Int("delivery", job.Attempt),
			slog.Any("error", err),
		)
		return err
	}

	switch res.Outcome {
	case OutcomeFailed:
		return river.JobCancel(res.Err)
	case OutcomeRetry:
		return res.Err
	default: // published, skipped
		return nil
	}
}
