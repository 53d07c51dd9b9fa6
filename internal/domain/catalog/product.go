package catalog

import (
	"strings"

	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillingType distinguishes one-off purchases from subscription plans
type BillingType string

const (
	BillingTypeOneTime   BillingType = "one_time"
	BillingTypeRecurring BillingType = "recurring"
)

// BillingInterval is the cadence unit of a recurring price
type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// IsValid reports whether the interval is one the provider accepts
func (i BillingInterval) IsValid() bool {
	switch i {
	case BillingIntervalDay, BillingIntervalWeek, BillingIntervalMonth, BillingIntervalYear:
		return true
	}
	return false
}

// Product is a catalog entry. Subscription plans are recurring products whose
// ExternalPriceID matches the plan stored on a user's subscription record.
type Product struct {
	shared.BaseEntity
	Name                 string
	Description          string
	Price                decimal.Decimal
	Currency             string
	ExternalProductID    string
	ExternalPriceID      string
	IsActive             bool
	IsFree               bool
	BillingType          BillingType
	BillingInterval      BillingInterval
	BillingIntervalCount int
}

// NewProduct creates a one-time product
func NewProduct(name, description string, price decimal.Decimal, currency string) (*Product, error) {
	p := &Product{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Currency:    strings.ToLower(currency),
		IsActive:    true,
		IsFree:      price.IsZero(),
		BillingType: BillingTypeOneTime,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewRecurringProduct creates a subscription plan product
func NewRecurringProduct(name, description string, price decimal.Decimal, currency string, interval BillingInterval, count int) (*Product, error) {
	if count == 0 {
		count = 1
	}
	p := &Product{
		BaseEntity:           shared.NewBaseEntity(),
		Name:                 strings.TrimSpace(name),
		Description:          description,
		Price:                price,
		Currency:             strings.ToLower(currency),
		IsActive:             true,
		IsFree:               price.IsZero(),
		BillingType:          BillingTypeRecurring,
		BillingInterval:      interval,
		BillingIntervalCount: count,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks product invariants
func (p *Product) Validate() error {
	if p.Name == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(p.Name) > 200 {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if len(p.Currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	switch p.BillingType {
	case BillingTypeOneTime:
		if p.BillingInterval != "" || p.BillingIntervalCount != 0 {
			return shared.NewDomainError("INVALID_BILLING", "One-time products cannot have a billing interval")
		}
	case BillingTypeRecurring:
		if !p.BillingInterval.IsValid() {
			return shared.NewDomainError("INVALID_BILLING", "Recurring products require a day, week, month or year interval")
		}
		if p.BillingIntervalCount < 1 {
			return shared.NewDomainError("INVALID_BILLING", "Billing interval count must be at least 1")
		}
	default:
		return shared.NewDomainError("INVALID_BILLING", "Billing type must be one_time or recurring")
	}
	return nil
}

// IsRecurring returns true for subscription plans
func (p *Product) IsRecurring() bool {
	return p.BillingType == BillingTypeRecurring
}

// NeedsProviderPrice returns true if the product must be mirrored to the provider before it can be sold
func (p *Product) NeedsProviderPrice() bool {
	return !p.IsFree && p.ExternalPriceID == ""
}

// LinkProviderPrice records the provider identifiers created for this product
func (p *Product) LinkProviderPrice(productID, priceID string) {
	p.ExternalProductID = productID
	p.ExternalPriceID = priceID
	p.Touch()
}

// UnitAmount returns the price in the currency's minor unit
func (p *Product) UnitAmount() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}
