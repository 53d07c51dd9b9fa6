package models

import (
	"github.com/shopspring/decimal"

	"github.com/blibbers/vibekit/internal/domain/catalog"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	BaseModel
	Name                 string          `gorm:"type:varchar(200);not null"`
	Description          string          `gorm:"type:text"`
	Price                decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency             string          `gorm:"type:varchar(3);not null"`
	ExternalProductID    string          `gorm:"type:varchar(255)"`
	ExternalPriceID      *string         `gorm:"type:varchar(255);uniqueIndex"`
	IsActive             bool            `gorm:"not null;default:true;index"`
	IsFree               bool            `gorm:"not null;default:false"`
	BillingType          string          `gorm:"type:varchar(20);not null"`
	BillingInterval      string          `gorm:"type:varchar(10)"`
	BillingIntervalCount int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:           m.toEntity(),
		Name:                 m.Name,
		Description:          m.Description,
		Price:                m.Price,
		Currency:             m.Currency,
		ExternalProductID:    m.ExternalProductID,
		ExternalPriceID:      derefString(m.ExternalPriceID),
		IsActive:             m.IsActive,
		IsFree:               m.IsFree,
		BillingType:          catalog.BillingType(m.BillingType),
		BillingInterval:      catalog.BillingInterval(m.BillingInterval),
		BillingIntervalCount: m.BillingIntervalCount,
	}
}

// ProductModelFromDomain converts a domain product to its model
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		BaseModel:            baseFromEntity(p.BaseEntity),
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price,
		Currency:             p.Currency,
		ExternalProductID:    p.ExternalProductID,
		ExternalPriceID:      nullableString(p.ExternalPriceID),
		IsActive:             p.IsActive,
		IsFree:               p.IsFree,
		BillingType:          string(p.BillingType),
		BillingInterval:      string(p.BillingInterval),
		BillingIntervalCount: p.BillingIntervalCount,
	}
}
