package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a scheduled post's position in the delayed-publish
// pipeline. It advances pending → queued → processing → {completed,
// pending (retry), failed}; canceled is reachable from any non-terminal
// state. Completed and failed are immutable.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

var jobStatusTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusQueued, JobStatusProcessing, JobStatusCanceled},
	JobStatusQueued:     {JobStatusProcessing, JobStatusPending, JobStatusCanceled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusPending, JobStatusFailed, JobStatusCanceled},
}

// CanTransition reports whether moving from→to respects the job-status
// state machine.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ScheduledPost ties a Post to a unit of delayed publish work. JobID
// references the queue job; attempts and lastAttemptAt are shared
// bookkeeping between the queue worker and the fallback sweep.
type ScheduledPost struct {
	ID            uuid.UUID  `json:"id"`
	PostID        uuid.UUID  `json:"postId"`
	UserID        uuid.UUID  `json:"userId"`
	ScheduledFor  time.Time  `json:"scheduledFor"`
	Timezone      string     `json:"timezone"`
	IsRecurring   bool       `json:"isRecurring"`
	JobID         *int64     `json:"jobId,omitempty"`
	JobStatus     JobStatus  `json:"jobStatus"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// QueueKey returns the deterministic queue identity for this scheduled
// post, so repeated scheduling attempts dedup at the queue layer instead
// of producing duplicate jobs.
func (sp ScheduledPost) QueueKey() string {
	return "scheduled-" + sp.ID.String()
}
