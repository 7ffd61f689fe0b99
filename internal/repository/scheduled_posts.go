package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivang0/linkedinai/internal/db"
	"github.com/Shivang0/linkedinai/internal/domain"
)

const scheduledPostColumns = `id, post_id, user_id, scheduled_for, timezone, is_recurring,
	job_id, job_status, attempts, last_attempt_at, error_message, created_at, updated_at`

// CreateScheduledPost inserts the scheduled post and flips its post to
// scheduled in one transaction, so a crash between the two writes cannot
// leave a scheduled post pointing at a draft.
func (r *Repository) CreateScheduledPost(ctx context.Context, sp domain.ScheduledPost) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO scheduled_posts (id, post_id, user_id, scheduled_for, timezone,
				is_recurring, job_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sp.ID, sp.PostID, sp.UserID, sp.ScheduledFor, sp.Timezone,
			sp.IsRecurring, sp.JobStatus, sp.CreatedAt, sp.UpdatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE posts SET status = $1, updated_at = now() WHERE id = $2`,
			domain.PostStatusScheduled, sp.PostID,
		)
		return err
	})
}

// GetScheduledPost fetches a scheduled post by ID.
func (r *Repository) GetScheduledPost(ctx context.Context, id uuid.UUID) (domain.ScheduledPost, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE id = $1`, id)
	return scanScheduledPost(row)
}

// MarkQueued records the queue job reference after a successful enqueue.
func (r *Repository) MarkQueued(ctx context.Context, id uuid.UUID, jobID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts
		SET job_id = $1, job_status = $2, updated_at = now()
		WHERE id = $3`,
		jobID, domain.JobStatusQueued, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelScheduledPost marks the scheduled post canceled, deletes it, and
// reverts the post to draft, all in one transaction. Deleting after the
// status write keeps the operation idempotent for callers that race. A
// completed or failed row is immutable: the guard in the WHERE clause
// rejects it with ErrTerminal instead of unpublishing a live post.
func (r *Repository) CancelScheduledPost(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var postID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE scheduled_posts
			SET job_status = $1, updated_at = now()
			WHERE id = $2 AND job_status IN ($3, $4, $5)
			RETURNING post_id`,
			domain.JobStatusCanceled, id,
			domain.JobStatusPending, domain.JobStatusQueued, domain.JobStatusProcessing,
		).Scan(&postID)
		if errors.Is(err, pgx.ErrNoRows) {
			return terminalOrGone(ctx, tx, id)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM scheduled_posts WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE posts SET status = $1, updated_at = now() WHERE id = $2`,
			domain.PostStatusDraft, postID,
		)
		return err
	})
}

// ResetForReschedule moves the scheduled post back to pending with a new
// target time and clears the old job reference. Completed and failed
// rows are immutable; rescheduling one would re-enqueue an already
// published post.
func (r *Repository) ResetForReschedule(ctx context.Context, id uuid.UUID, newTime time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE scheduled_posts
			SET scheduled_for = $1, job_id = NULL, job_status = $2,
				error_message = '', updated_at = now()
			WHERE id = $3 AND job_status IN ($4, $5, $6)`,
			newTime, domain.JobStatusPending, id,
			domain.JobStatusPending, domain.JobStatusQueued, domain.JobStatusProcessing,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if err := terminalOrGone(ctx, tx, id); err != nil {
				return err
			}
			return ErrNotFound
		}
		return nil
	})
}

// terminalOrGone distinguishes a guarded update that matched no rows:
// a row that still exists must be terminal; a missing row is reported as
// nil so idempotent callers can treat it as already handled.
func terminalOrGone(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM scheduled_posts WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrTerminal
	}
	return nil
}

// ListForUser returns a user's scheduled posts still in flight, newest
// target time first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ScheduledPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduledPostColumns+`
		FROM scheduled_posts
		WHERE user_id = $1 AND job_status IN ($2, $3, $4)
		ORDER BY scheduled_for DESC`,
		userID, domain.JobStatusPending, domain.JobStatusQueued, domain.JobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

// ListOverdue returns scheduled posts whose target time has passed but
// which never progressed past pending/queued. These are the rows the
// fallback sweep republishes after a queue or worker outage.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduledPostColumns+`
		FROM scheduled_posts
		WHERE scheduled_for <= $1 AND job_status IN ($2, $3)
		ORDER BY scheduled_for
		LIMIT $4`,
		now, domain.JobStatusPending, domain.JobStatusQueued, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

// ClaimForProcessing atomically moves a scheduled post from
// pending/queued to processing, stamping the attempt. The conditional
// WHERE is the mutual-exclusion gate between the queue worker and the
// fallback sweep: exactly one caller wins, the loser gets ErrNotClaimed.
func (r *Repository) ClaimForProcessing(ctx context.Context, id uuid.UUID, now time.Time) (domain.ScheduledPost, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE scheduled_posts
		SET job_status = $1, attempts = attempts + 1, last_attempt_at = $2, updated_at = now()
		WHERE id = $3 AND job_status IN ($4, $5)
		RETURNING `+scheduledPostColumns,
		domain.JobStatusProcessing, now, id, domain.JobStatusPending, domain.JobStatusQueued,
	)
	sp, err := scanScheduledPost(row)
	if errors.Is(err, ErrNotFound) {
		return domain.ScheduledPost{}, ErrNotClaimed
	}
	return sp, err
}

// MarkPublished records a successful publish: the post gets its LinkedIn
// identifiers and the scheduled post completes, in one transaction.
func (r *Repository) MarkPublished(ctx context.Context, sp domain.ScheduledPost, postID, postURL string, publishedAt time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE posts
			SET status = $1, linkedin_post_id = $2, linkedin_post_url = $3,
				published_at = $4, failure_reason = '', updated_at = now()
			WHERE id = $5`,
			domain.PostStatusPublished, postID, postURL, publishedAt, sp.PostID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE scheduled_posts
			SET job_status = $1, error_message = '', updated_at = now()
			WHERE id = $2`,
			domain.JobStatusCompleted, sp.ID,
		)
		return err
	})
}

// MarkFailed records a terminal failure on both rows, in one transaction.
func (r *Repository) MarkFailed(ctx context.Context, sp domain.ScheduledPost, reason string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE posts
			SET status = $1, failure_reason = $2, updated_at = now()
			WHERE id = $3`,
			domain.PostStatusFailed, reason, sp.PostID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE scheduled_posts
			SET job_status = $1, error_message = $2, updated_at = now()
			WHERE id = $3`,
			domain.JobStatusFailed, reason, sp.ID,
		)
		return err
	})
}

// MarkRetry returns the scheduled post to pending with the failure
// recorded; the queue's backoff will redeliver it. The post keeps its
// scheduled status so the user sees it as still in flight.
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts
		SET job_status = $1, error_message = $2, updated_at = now()
		WHERE id = $3`,
		domain.JobStatusPending, errMsg, id,
	)
	return err
}

func scanScheduledPost(row pgx.Row) (domain.ScheduledPost, error) {
	var sp domain.ScheduledPost
	err := row.Scan(
		&sp.ID, &sp.PostID, &sp.UserID, &sp.ScheduledFor, &sp.Timezone, &sp.IsRecurring,
		&sp.JobID, &sp.JobStatus, &sp.Attempts, &sp.LastAttemptAt, &sp.ErrorMessage,
		&sp.CreatedAt, &sp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScheduledPost{}, ErrNotFound
	}
	if err != nil {
		return domain.ScheduledPost{}, err
	}
	return sp, nil
}

func collectScheduledPosts(rows pgx.Rows) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	for rows.Next() {
		sp, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
