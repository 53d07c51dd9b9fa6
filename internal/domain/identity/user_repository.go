package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by email, case-insensitively
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByBillingCustomerID finds the user linked to a provider customer
	FindByBillingCustomerID(ctx context.Context, customerID string) (*User, error)

	// UpdateBillingCustomerID persists only the provider customer link
	UpdateBillingCustomerID(ctx context.Context, id uuid.UUID, customerID string) error

	// SaveSubscription replaces the stored subscription record of the user.
	// A nil sub clears it.
	SaveSubscription(ctx context.Context, id uuid.UUID, sub *Subscription) error
}
