package publish

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepBatch = 10

// Sweeper is the safety net behind the queue: on a fixed cadence it
// finds scheduled posts whose target time passed while they were still
// pending/queued (queue outage, worker crash, lost job) and publishes
// them directly through the same Attempter the worker uses. The claim
// gate inside Attempt makes a sweep racing a late worker single-winner.
type Sweeper struct {
	store     Store
	attempter *Attempter
	log       *slog.Logger
	batchSize int
	now       func() time.Time
}

// NewSweeper creates a sweep bounded to batchSize posts per run (≤0
// uses the default); the bound keeps each run inside the cron cadence.
func NewSweeper(store Store, attempter *Attempter, batchSize int, log *slog.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &Sweeper{
		store:     store,
		attempter: attempter,
		log:       log,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Summary is one sweep's per-outcome tally.
type Summary struct {
	Scanned   int
	Published int
	Retried   int
	Failed    int
	Skipped   int
	Errors    int
}

// Sweep runs one pass. Individual post failures are isolated: one bad
// post never blocks the rest of the batch, so the error return covers
// only the overdue query itself.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	overdue, err := s.store.ListOverdue(ctx, s.now(), s.batchSize)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Scanned: len(overdue)}
	for _, sp := range overdue {
		res, err := s.attempter.Attempt(ctx, sp.ID)
		if err != nil {
			sum.Errors++
			s.log.ErrorContext(ctx, "sweep attempt errored",
				slog.String("scheduled_post_id", sp.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		switch res.Outcome {
		case OutcomePublished:
			sum.Published++
		case OutcomeRetry:
			sum.Retried++
		case OutcomeFailed:
			sum.Failed++
		case OutcomeSkipped:
			sum.Skipped++
		}
	}

	if sum.Scanned > 0 {
		s.log.InfoContext(ctx, "fallback sweep completed",
			slog.Int("scanned", sum.Scanned),
			slog.Int("published", sum.Published),
			slog.Int("retried", sum.Retried),
			slog.Int("failed", sum.Failed),
			slog.Int("skipped", sum.Skipped),
			slog.Int("errors", sum.Errors),
		)
	}
	return sum, nil
}
