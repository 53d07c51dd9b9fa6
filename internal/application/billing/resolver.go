package billing

import (
	"context"
	"errors"
	"fmt"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/google/uuid"
)

// ResolveUser finds the local user an event refers to.
//
// The provider customer id is tried first. Failing that, the userId carried in
// metadata is looked up and, when found, the customer id is backfilled onto
// the user so later events resolve directly. When neither matches the result
// is *UserResolutionWarning.
func ResolveUser(ctx context.Context, users identity.UserRepository, eventID, customerID, metadataUserID string) (*identity.User, error) {
	if customerID != "" {
		user, err := users.FindByBillingCustomerID(ctx, customerID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find user by customer %s: %w", customerID, err)
		}
	}

	notFound := &domainBilling.UserResolutionWarning{EventID: eventID, CustomerID: customerID, UserID: metadataUserID}

	userID, err := uuid.Parse(metadataUserID)
	if err != nil {
		return nil, notFound
	}

	user, err := users.FindByID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}

	if customerID != "" && user.BillingCustomerID != customerID {
		if err := users.UpdateBillingCustomerID(ctx, user.ID, customerID); err != nil {
			return nil, fmt.Errorf("backfill customer for user %s: %w", user.ID, err)
		}
		user.SetBillingCustomerID(customerID)
	}
	return user, nil
}
