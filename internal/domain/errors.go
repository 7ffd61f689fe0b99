package domain

import "errors"

var (
	// ErrScheduledInPast is returned when a schedule request targets a
	// time that is not strictly in the future.
	ErrScheduledInPast = errors.New("domain: scheduled time must be in the future")

	// ErrInvalidTransition is returned when a job-status change would
	// violate the scheduled-post state machine.
	ErrInvalidTransition = errors.New("domain: invalid job status transition")

	// ErrInvalidRecurrence is returned when a recurrence rule carries an
	// unknown frequency.
	ErrInvalidRecurrence = errors.New("domain: invalid recurrence rule")

	// Publish preconditions. All three are terminal for a publish
	// attempt: retrying cannot fix a missing credential or a lapsed
	// subscription.
	ErrNoLinkedInCredential = errors.New("domain: user has no linkedin credential")
	ErrAccountInactive      = errors.New("domain: user account is not active")
	ErrSubscriptionInactive = errors.New("domain: user subscription is not active")
)
