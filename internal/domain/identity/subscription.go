package identity

import (
	"time"
)

// SubscriptionStatus mirrors the billing provider's subscription status vocabulary
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// String returns the string representation of the status
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsKnown reports whether the status belongs to the documented vocabulary
func (s SubscriptionStatus) IsKnown() bool {
	switch s {
	case SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
		SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid,
		SubscriptionStatusPaused:
		return true
	}
	return false
}

// IsEntitled returns true if the status grants access to paid features
func (s SubscriptionStatus) IsEntitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription is the locally mirrored view of a user's provider subscription.
// It is always written as a whole; there is no partial update path.
type Subscription struct {
	ID               string
	Status           SubscriptionStatus
	CurrentPeriodEnd time.Time
	Plan             string
}

// IsEntitled returns true if the subscription grants access to paid features
func (s *Subscription) IsEntitled() bool {
	return s != nil && s.Status.IsEntitled()
}
