package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/infrastructure/persistence/models"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

// FindByBillingCustomerID finds the user linked to a provider customer
func (r *GormUserRepository) FindByBillingCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "billing_customer_id = ?", customerID)
}

// UpdateBillingCustomerID links the user to a provider customer
func (r *GormUserRepository) UpdateBillingCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return r.updateColumns(ctx, id, map[string]any{"billing_customer_id": customerID})
}

// SaveSubscription overwrites every subscription column in one statement.
// A nil sub clears them.
func (r *GormUserRepository) SaveSubscription(ctx context.Context, id uuid.UUID, sub *identity.Subscription) error {
	return r.updateColumns(ctx, id, models.SubscriptionColumns(sub))
}

func (r *GormUserRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	columns["updated_at"] = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, args ...any) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
