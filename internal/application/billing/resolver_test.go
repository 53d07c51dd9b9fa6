package billing

import (
	"context"
	"errors"
	"testing"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, customerID string) *identity.User {
	t.Helper()
	u, err := identity.NewUser(uuid.NewString()+"@example.com", "Ada", "Lovelace")
	require.NoError(t, err)
	u.BillingCustomerID = customerID
	return u
}

func TestResolveUser_ByCustomerID(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "cus_1")
	repo := new(MockUserRepository)
	repo.On("FindByBillingCustomerID", ctx, "cus_1").Return(user, nil)

	got, err := ResolveUser(ctx, repo, "evt_1", "cus_1", uuid.NewString())

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateBillingCustomerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUser_FallsBackToMetadataAndBackfills(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "")
	repo := new(MockUserRepository)
	repo.On("FindByBillingCustomerID", ctx, "cus_new").Return(nil, shared.ErrNotFound)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("UpdateBillingCustomerID", ctx, user.ID, "cus_new").Return(nil)

	got, err := ResolveUser(ctx, repo, "evt_1", "cus_new", user.ID.String())

	require.NoError(t, err)
	assert.Equal(t, "cus_new", got.BillingCustomerID)
	repo.AssertExpectations(t)
}

func TestResolveUser_NoBackfillWhenAlreadyLinked(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, "cus_1")
	repo := new(MockUserRepository)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)

	got, err := ResolveUser(ctx, repo, "evt_1", "", user.ID.String())

	require.NoError(t, err)
	assert.Equal(t, "cus_1", got.BillingCustomerID)
	repo.AssertNotCalled(t, "FindByBillingCustomerID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateBillingCustomerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUser_Unresolvable(t *testing.T) {
	ctx := context.Background()
	missing := uuid.New()

	tests := []struct {
		name   string
		userID string
		setup  func(*MockUserRepository)
	}{
		{"no metadata", "", func(*MockUserRepository) {}},
		{"malformed metadata", "not-a-uuid", func(*MockUserRepository) {}},
		{"unknown user", missing.String(), func(r *MockUserRepository) {
			r.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			repo.On("FindByBillingCustomerID", ctx, "cus_x").Return(nil, shared.ErrNotFound)
			tt.setup(repo)

			got, err := ResolveUser(ctx, repo, "evt_9", "cus_x", tt.userID)

			assert.Nil(t, got)
			var warning *domainBilling.UserResolutionWarning
			require.ErrorAs(t, err, &warning)
			assert.Equal(t, "evt_9", warning.EventID)
			assert.Equal(t, "cus_x", warning.CustomerID)
			assert.Equal(t, tt.userID, warning.UserID)
		})
	}
}

func TestResolveUser_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection reset")
	repo := new(MockUserRepository)
	repo.On("FindByBillingCustomerID", ctx, "cus_1").Return(nil, dbErr)

	_, err := ResolveUser(ctx, repo, "evt_1", "cus_1", "")

	assert.ErrorIs(t, err, dbErr)
	var warning *domainBilling.UserResolutionWarning
	assert.False(t, errors.As(err, &warning))
}
