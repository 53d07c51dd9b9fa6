package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error

	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByExternalPriceID finds the product correlated with a provider price
	FindByExternalPriceID(ctx context.Context, priceID string) (*Product, error)

	// FindFreePlan returns the active product marked as free, if any
	FindFreePlan(ctx context.Context) (*Product, error)

	// FindActive lists active products ordered by price
	FindActive(ctx context.Context) ([]Product, error)
}
