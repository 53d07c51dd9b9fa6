package identity

import (
	"strings"

	"github.com/blibbers/vibekit/internal/domain/shared"
)

// Role represents the access role of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account that owns billing state.
// Subscription is nil when the user has no paid subscription.
type User struct {
	shared.BaseEntity
	Email             string
	FirstName         string
	LastName          string
	Role              Role
	BillingCustomerID string
	Subscription      *Subscription
}

// NewUser creates a new user with required fields
func NewUser(email, firstName, lastName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}

	return &User{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
		FirstName:  strings.TrimSpace(firstName),
		LastName:   strings.TrimSpace(lastName),
		Role:       RoleUser,
	}, nil
}

// DisplayName returns the name shown to the billing provider
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasBillingCustomer returns true once a provider customer has been linked
func (u *User) HasBillingCustomer() bool {
	return u.BillingCustomerID != ""
}

// SetBillingCustomerID links the user to a provider customer
func (u *User) SetBillingCustomerID(customerID string) {
	u.BillingCustomerID = customerID
	u.Touch()
}

// ReplaceSubscription overwrites the subscription record with sub
func (u *User) ReplaceSubscription(sub Subscription) {
	u.Subscription = &sub
	u.Touch()
}

// ClearSubscription removes the subscription record.
// Returns false if there was nothing to clear.
func (u *User) ClearSubscription() bool {
	if u.Subscription == nil {
		return false
	}
	u.Subscription = nil
	u.Touch()
	return true
}

// SubscriptionID returns the stored provider subscription id, or ""
func (u *User) SubscriptionID() string {
	if u.Subscription == nil {
		return ""
	}
	return u.Subscription.ID
}

// HasActiveSubscription reports entitlement from the local record only
func (u *User) HasActiveSubscription() bool {
	return u.Subscription.IsEntitled()
}
