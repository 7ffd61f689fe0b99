package linkedin

import "errors"

var (
	// ErrCredentialRejected means LinkedIn refused the access token.
	// Retrying without user action cannot succeed.
	ErrCredentialRejected = errors.New("linkedin: credential rejected")

	// ErrPublishFailed covers transport errors and non-success API
	// responses other than credential rejection.
	ErrPublishFailed = errors.New("linkedin: publish failed")
)
