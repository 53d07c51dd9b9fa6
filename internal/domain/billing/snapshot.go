package billing

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Metadata keys written on provider objects so inbound events can be correlated
const (
	MetadataUserID  = "userId"
	MetadataOrderID = "orderId"
)

// RawTimestamp is an epoch-seconds value exactly as the provider sent it.
// It is kept unparsed because malformed values must be handled by the caller,
// not rejected while decoding the event.
type RawTimestamp string

// TimestampFromUnix builds a RawTimestamp from a well-formed epoch value
func TimestampFromUnix(sec int64) RawTimestamp {
	return RawTimestamp(strconv.FormatInt(sec, 10))
}

// SubscriptionItem is one priced line of a subscription
type SubscriptionItem struct {
	ID          string
	PriceID     string
	ProductID   string
	ProductName string
	UnitAmount  int64
	Currency    string
	Interval    string
}

// SubscriptionSnapshot is a provider subscription reduced to what billing reads
type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   RawTimestamp
	CancelAtPeriodEnd  bool
	CancelAt           int64
	Items              []SubscriptionItem
	Metadata           map[string]string
}

// FirstPriceID returns the price of the first item, or "" if there are none.
// Subscriptions carry a single priced item; later items are ignored.
func (s *SubscriptionSnapshot) FirstPriceID() string {
	if len(s.Items) == 0 {
		return ""
	}
	return s.Items[0].PriceID
}

// FirstItem returns the first item, if any
func (s *SubscriptionSnapshot) FirstItem() (SubscriptionItem, bool) {
	if len(s.Items) == 0 {
		return SubscriptionItem{}, false
	}
	return s.Items[0], true
}

// UserID returns the internal user id carried in metadata, or ""
func (s *SubscriptionSnapshot) UserID() string {
	return s.Metadata[MetadataUserID]
}

// PaymentSnapshot is a provider payment intent reduced to what billing reads
type PaymentSnapshot struct {
	ID             string
	CustomerID     string
	Amount         int64
	Currency       string
	Status         string
	FailureMessage string
	Metadata       map[string]string
}

// OrderID returns the internal order id carried in metadata, or ""
func (p *PaymentSnapshot) OrderID() string {
	return p.Metadata[MetadataOrderID]
}

// Invoice is a provider invoice
type Invoice struct {
	ID             string
	Number         string
	CustomerID     string
	SubscriptionID string
	Status         string
	AmountDue      int64
	AmountPaid     int64
	Currency       string
	HostedURL      string
	PDFURL         string
	Created        time.Time
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// PaymentMethod is a card stored on a provider customer
type PaymentMethod struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
	ExpMonth   int64
	ExpYear    int64
}

// CheckoutSessionInput describes a hosted subscription checkout
type CheckoutSessionInput struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the result of creating a hosted checkout
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentIntentInput describes a one-time payment
type PaymentIntentInput struct {
	Amount     decimal.Decimal
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

// PaymentIntent is a created payment intent with its client secret
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// NewSubscription is the result of creating a subscription directly
type NewSubscription struct {
	Subscription SubscriptionSnapshot
	ClientSecret string
}

// RefundInput describes a refund of a payment intent.
// A nil Amount refunds the full amount.
type RefundInput struct {
	PaymentIntentID string
	Amount          *decimal.Decimal
	Reason          string
}

// Refund is a created refund
type Refund struct {
	ID     string
	Status string
	Amount int64
}

// PriceInput describes a provider price to create
type PriceInput struct {
	ProductID     string
	UnitAmount    int64
	Currency      string
	Recurring     bool
	Interval      string
	IntervalCount int64
}

// ToMinorUnits converts a decimal amount to the currency's minor unit
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
