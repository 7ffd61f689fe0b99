package queue

import "errors"

var (
	// ErrQueueBackend wraps failures from the queue backend itself
	// (storage unavailable, insert/cancel failed). The queue does not
	// retry these; the caller decides whether to retry the scheduling
	// operation.
	ErrQueueBackend = errors.New("queue: backend error")

	// ErrPoolRequired is returned when constructing a queue without a
	// database pool.
	ErrPoolRequired = errors.New("queue: pool is required")
)
