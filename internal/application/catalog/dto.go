package catalog

import (
	"time"

	"github.com/blibbers/vibekit/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a catalog product
type CreateProductRequest struct {
	Name                 string          `json:"name" binding:"required,min=1,max=200"`
	Description          string          `json:"description" binding:"max=2000"`
	Price                decimal.Decimal `json:"price"`
	Currency             string          `json:"currency" binding:"omitempty,len=3"`
	BillingType          string          `json:"billingType" binding:"omitempty,oneof=one_time recurring"`
	BillingInterval      string          `json:"billingInterval" binding:"omitempty,oneof=day week month year"`
	BillingIntervalCount int             `json:"billingIntervalCount" binding:"omitempty,min=1,max=12"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	Currency             string          `json:"currency"`
	ExternalProductID    string          `json:"externalProductId,omitempty"`
	ExternalPriceID      string          `json:"externalPriceId,omitempty"`
	IsActive             bool            `json:"isActive"`
	IsFree               bool            `json:"isFree"`
	BillingType          string          `json:"billingType"`
	BillingInterval      string          `json:"billingInterval,omitempty"`
	BillingIntervalCount int             `json:"billingIntervalCount,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price,
		Currency:             p.Currency,
		ExternalProductID:    p.ExternalProductID,
		ExternalPriceID:      p.ExternalPriceID,
		IsActive:             p.IsActive,
		IsFree:               p.IsFree,
		BillingType:          string(p.BillingType),
		BillingInterval:      string(p.BillingInterval),
		BillingIntervalCount: p.BillingIntervalCount,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
