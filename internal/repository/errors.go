package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrNotClaimed is returned by ClaimForProcessing when another
	// worker (or the fallback sweep) already moved the scheduled post
	// out of pending/queued.
	ErrNotClaimed = errors.New("repository: scheduled post not claimable")

	// ErrTerminal is returned when a write targets a scheduled post
	// that already completed or failed. Those rows are immutable.
	ErrTerminal = errors.New("repository: scheduled post in terminal state")
)
