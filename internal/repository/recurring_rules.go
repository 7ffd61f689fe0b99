package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivang0/linkedinai/internal/domain"
)

const recurringRuleColumns = `id, scheduled_post_id, frequency, interval, days_of_week,
	day_of_month, time_of_day, end_date, next_occurrence_at, last_generated_at`

// CreateRecurringRule inserts a recurrence rule for a scheduled post.
func (r *Repository) CreateRecurringRule(ctx context.Context, rule domain.RecurringRule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recurring_rules (id, scheduled_post_id, frequency, interval,
			days_of_week, day_of_month, time_of_day, end_date, next_occurrence_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rule.ID, rule.ScheduledPostID, rule.Frequency, rule.Interval,
		weekdaysToInts(rule.DaysOfWeek), rule.DayOfMonth, rule.TimeOfDay,
		rule.EndDate, rule.NextOccurrenceAt,
	)
	return err
}

// ListDueRecurringRules returns rules whose next occurrence falls within
// [now, now+window), skipping exhausted rules.
func (r *Repository) ListDueRecurringRules(ctx context.Context, now time.Time, window time.Duration, limit int) ([]domain.RecurringRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recurringRuleColumns+`
		FROM recurring_rules
		WHERE next_occurrence_at IS NOT NULL AND next_occurrence_at < $1
		ORDER BY next_occurrence_at
		LIMIT $2`,
		now.Add(window), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecurringRule
	for rows.Next() {
		rule, err := scanRecurringRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// AdvanceRecurringRule records the rule's next occurrence (nil when the
// rule is exhausted) and the generation timestamp.
func (r *Repository) AdvanceRecurringRule(ctx context.Context, id uuid.UUID, next *time.Time, generatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_rules
		SET next_occurrence_at = $1, last_generated_at = $2
		WHERE id = $3`,
		next, generatedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecurringRule(row pgx.Row) (domain.RecurringRule, error) {
	var (
		rule domain.RecurringRule
		days []int32
	)
	err := row.Scan(
		&rule.ID, &rule.ScheduledPostID, &rule.Frequency, &rule.Interval, &days,
		&rule.DayOfMonth, &rule.TimeOfDay, &rule.EndDate, &rule.NextOccurrenceAt,
		&rule.LastGeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RecurringRule{}, ErrNotFound
	}
	if err != nil {
		return domain.RecurringRule{}, err
	}
	rule.DaysOfWeek = intsToWeekdays(days)
	return rule, nil
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func intsToWeekdays(days []int32) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(d)
	}
	return out
}
