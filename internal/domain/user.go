package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the state of the user's account itself.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountDeleted   AccountStatus = "deleted"
)

// SubscriptionStatus mirrors the billing provider's view of the user.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// User carries the account, billing, and LinkedIn credential state the
// publish pipeline validates fresh on every attempt. A billing lapse
// between scheduling and publish time must block publication, so none
// of this is cached.
type User struct {
	ID                  uuid.UUID
	Email               string
	AccountStatus       AccountStatus
	SubscriptionStatus  SubscriptionStatus
	LinkedInMemberID    string
	LinkedInAccessToken string
	LinkedInTokenExpiry *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CanPublish reports whether the user is currently allowed to publish,
// returning the specific violation for error reporting.
func (u User) CanPublish() error {
	if u.LinkedInAccessToken == "" {
		return ErrNoLinkedInCredential
	}
	if u.AccountStatus != AccountActive {
		return ErrAccountInactive
	}
	if u.SubscriptionStatus != SubscriptionActive {
		return ErrSubscriptionInactive
	}
	return nil
}
