package trade

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfilment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is a one-time purchase paid through a provider payment intent
type Order struct {
	shared.BaseEntity
	UserID                  uuid.UUID
	OrderNumber             string
	Total                   decimal.Decimal
	Currency                string
	Status                  OrderStatus
	PaymentStatus           PaymentStatus
	ExternalPaymentIntentID string
	RefundReason            string
	RefundedAt              *time.Time
}

// NewOrder creates a pending order
func NewOrder(userID uuid.UUID, total decimal.Decimal, currency string) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Order must belong to a user")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order total must be positive")
	}

	return &Order{
		BaseEntity:    shared.NewBaseEntity(),
		UserID:        userID,
		OrderNumber:   GenerateOrderNumber(time.Now()),
		Total:         total,
		Currency:      strings.ToLower(currency),
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusPending,
	}, nil
}

// GenerateOrderNumber builds an ORD-<time>-<random> number in upper-case base 36
func GenerateOrderNumber(at time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	suffix := strings.ToUpper(strconv.FormatInt(rand.Int64N(36*36*36), 36))
	if len(suffix) < 3 {
		suffix = strings.Repeat("0", 3-len(suffix)) + suffix
	}
	return "ORD-" + ts + "-" + suffix
}

// AttachPaymentIntent records the provider payment intent paying this order
func (o *Order) AttachPaymentIntent(paymentIntentID string) {
	o.ExternalPaymentIntentID = paymentIntentID
	o.Touch()
}

// MarkPaid records a successful payment. Re-applying it is a no-op.
func (o *Order) MarkPaid(paymentIntentID string) error {
	if o.PaymentStatus == PaymentStatusRefunded {
		return shared.NewDomainError("INVALID_STATE", "Cannot mark a refunded order as paid")
	}
	if paymentIntentID != "" {
		o.ExternalPaymentIntentID = paymentIntentID
	}
	o.PaymentStatus = PaymentStatusPaid
	if o.Status == OrderStatusPending {
		o.Status = OrderStatusProcessing
	}
	o.Touch()
	return nil
}

// MarkPaymentFailed records a failed payment attempt
func (o *Order) MarkPaymentFailed(paymentIntentID string) error {
	if o.PaymentStatus == PaymentStatusPaid || o.PaymentStatus == PaymentStatusRefunded {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark a %s order as failed", o.PaymentStatus))
	}
	if paymentIntentID != "" {
		o.ExternalPaymentIntentID = paymentIntentID
	}
	o.PaymentStatus = PaymentStatusFailed
	o.Touch()
	return nil
}

// MarkRefunded records a completed refund
func (o *Order) MarkRefunded(reason string, at time.Time) error {
	if o.PaymentStatus != PaymentStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid orders can be refunded")
	}
	o.PaymentStatus = PaymentStatusRefunded
	o.Status = OrderStatusRefunded
	o.RefundReason = reason
	o.RefundedAt = &at
	o.Touch()
	return nil
}

// AmountMinor returns the total in the currency's minor unit
func (o *Order) AmountMinor() int64 {
	return o.Total.Shift(2).Round(0).IntPart()
}
