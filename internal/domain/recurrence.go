package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Frequency is the closed set of recurrence cadences. Each variant owns
// its own advancement arithmetic; there is no generic "add duration"
// path, because monthly advancement pinned to a day-of-month is a
// calendar operation, not a duration.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the known variants.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// RecurringRule describes how a recurring scheduled post repeats. The
// expansion pass is the only mutator: it advances NextOccurrenceAt and
// nils it once the rule runs past EndDate.
type RecurringRule struct {
	ID               uuid.UUID
	ScheduledPostID  uuid.UUID
	Frequency        Frequency
	Interval         int
	// TODO: weekly advancement ignores DaysOfWeek beyond the anchor
	// weekday; honoring multiple weekdays needs an intra-week ordering
	// decision first.
	DaysOfWeek       []time.Weekday
	DayOfMonth       int        // 0 = not pinned
	TimeOfDay        string     // "HH:MM" in the rule's timezone
	EndDate          *time.Time // nil = never ends
	NextOccurrenceAt *time.Time // nil = exhausted
	LastGeneratedAt  *time.Time
}

// Advance computes the occurrence after from, per the rule's frequency
// and interval. Monthly rules pinned to a day-of-month clamp to the last
// day of months that are too short: a rule pinned to the 31st fires on
// Apr 30, then returns to May 31.
func (r RecurringRule) Advance(from time.Time) (time.Time, error) {
	interval := max(r.Interval, 1)

	switch r.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, interval), nil
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval), nil
	case FrequencyMonthly:
		return advanceMonthly(from, interval, r.DayOfMonth), nil
	default:
		return time.Time{}, fmt.Errorf("domain: unknown frequency %q", r.Frequency)
	}
}

// Exhausted reports whether the rule can produce no further occurrences.
func (r RecurringRule) Exhausted() bool {
	return r.NextOccurrenceAt == nil
}

// PastEnd reports whether t falls beyond the rule's end date.
func (r RecurringRule) PastEnd(t time.Time) bool {
	return r.EndDate != nil && t.After(*r.EndDate)
}

func advanceMonthly(from time.Time, interval, dayOfMonth int) time.Time {
	year, month, _ := from.Date()
	hour, minute, sec := from.Clock()

	// Anchor on the first of the target month to avoid Go's date
	// normalization (Jan 31 + 1 month = Mar 3) before clamping.
	first := time.Date(year, month, 1, hour, minute, sec, 0, from.Location())
	target := first.AddDate(0, interval, 0)

	day := dayOfMonth
	if day == 0 {
		day = from.Day()
	}
	day = min(day, daysIn(target.Year(), target.Month()))

	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, 0, from.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
