package trade

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
}
