package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blibbers/vibekit/internal/domain/trade"
)

// OrderModel is the persistence model for trade.Order
type OrderModel struct {
	BaseModel
	UserID                  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNumber             string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Total                   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency                string          `gorm:"type:varchar(3);not null"`
	Status                  string          `gorm:"type:varchar(20);not null"`
	PaymentStatus           string          `gorm:"type:varchar(20);not null"`
	ExternalPaymentIntentID *string         `gorm:"type:varchar(255);uniqueIndex"`
	RefundReason            string          `gorm:"type:text"`
	RefundedAt              *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain order
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		BaseEntity:              m.toEntity(),
		UserID:                  m.UserID,
		OrderNumber:             m.OrderNumber,
		Total:                   m.Total,
		Currency:                m.Currency,
		Status:                  trade.OrderStatus(m.Status),
		PaymentStatus:           trade.PaymentStatus(m.PaymentStatus),
		ExternalPaymentIntentID: derefString(m.ExternalPaymentIntentID),
		RefundReason:            m.RefundReason,
		RefundedAt:              m.RefundedAt,
	}
}

// OrderModelFromDomain converts a domain order to its model
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	return &OrderModel{
		BaseModel:               baseFromEntity(o.BaseEntity),
		UserID:                  o.UserID,
		OrderNumber:             o.OrderNumber,
		Total:                   o.Total,
		Currency:                o.Currency,
		Status:                  string(o.Status),
		PaymentStatus:           string(o.PaymentStatus),
		ExternalPaymentIntentID: nullableString(o.ExternalPaymentIntentID),
		RefundReason:            o.RefundReason,
		RefundedAt:              o.RefundedAt,
	}
}
