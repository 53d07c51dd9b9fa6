package handler

import (
	"strconv"
	"time"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest starts a hosted subscription checkout
type CheckoutRequest struct {
	PriceID    string `json:"priceId" binding:"required,max=255"`
	SuccessURL string `json:"successUrl" binding:"required,http_url"`
	CancelURL  string `json:"cancelUrl" binding:"required,http_url"`
}

// CheckoutResponse points the browser at the hosted checkout
type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// ChangePlanRequest moves the subscription to another price
type ChangePlanRequest struct {
	PriceID string `json:"priceId" binding:"required,max=255"`
}

// AddPaymentMethodRequest attaches a tokenized card
type AddPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required,max=255"`
}

// CreatePaymentIntentRequest starts a one-time payment
type CreatePaymentIntentRequest struct {
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency" binding:"omitempty,len=3"`
	Metadata map[string]string `json:"metadata"`
}

// CreateSubscriptionRequest creates a subscription without hosted checkout
type CreateSubscriptionRequest struct {
	PriceID   string `json:"priceId" binding:"required,max=255"`
	TrialDays int64  `json:"trialDays" binding:"omitempty,min=0,max=730"`
}

// RefundOrderRequest refunds a paid order
type RefundOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// SubscriptionItemResponse is one priced line of a subscription
type SubscriptionItemResponse struct {
	PriceID     string `json:"priceId"`
	ProductID   string `json:"productId,omitempty"`
	ProductName string `json:"productName,omitempty"`
	UnitAmount  int64  `json:"unitAmount"`
	Currency    string `json:"currency,omitempty"`
	Interval    string `json:"interval,omitempty"`
}

// SubscriptionResponse is the provider's live view of a subscription
type SubscriptionResponse struct {
	ID                 string                     `json:"id"`
	Status             string                     `json:"status"`
	CurrentPeriodStart *time.Time                 `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time                 `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd  bool                       `json:"cancelAtPeriodEnd"`
	CancelAt           *time.Time                 `json:"cancelAt,omitempty"`
	Items              []SubscriptionItemResponse `json:"items"`
}

// CurrentSubscriptionResponse combines the live subscription with its catalog product
type CurrentSubscriptionResponse struct {
	Subscription          *SubscriptionResponse       `json:"subscription"`
	Product               *catalogapp.ProductResponse `json:"product"`
	HasActiveSubscription bool                        `json:"hasActiveSubscription"`
}

// SubscriptionStatusResponse answers the entitlement check
type SubscriptionStatusResponse struct {
	HasActiveSubscription bool `json:"hasActiveSubscription"`
}

// InvoiceResponse is a billing history entry
type InvoiceResponse struct {
	ID          string    `json:"id"`
	Number      string    `json:"number,omitempty"`
	Status      string    `json:"status"`
	AmountDue   int64     `json:"amountDue"`
	AmountPaid  int64     `json:"amountPaid"`
	Currency    string    `json:"currency"`
	HostedURL   string    `json:"hostedInvoiceUrl,omitempty"`
	PDFURL      string    `json:"invoicePdf,omitempty"`
	Created     time.Time `json:"created"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// PaymentMethodResponse is a stored card
type PaymentMethodResponse struct {
	ID        string `json:"id"`
	Brand     string `json:"brand,omitempty"`
	Last4     string `json:"last4,omitempty"`
	ExpMonth  int64  `json:"expMonth,omitempty"`
	ExpYear   int64  `json:"expYear,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

// PaymentMethodsResponse lists stored cards
type PaymentMethodsResponse struct {
	PaymentMethods         []PaymentMethodResponse `json:"paymentMethods"`
	DefaultPaymentMethodID string                  `json:"defaultPaymentMethodId,omitempty"`
}

// SetupIntentResponse lets the client collect a card
type SetupIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// PaymentIntentResponse lets the client confirm a payment
type PaymentIntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Status          string `json:"status,omitempty"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// NewSubscriptionResponse is a directly created subscription
type NewSubscriptionResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	ClientSecret string               `json:"clientSecret,omitempty"`
}

// OrderResponse is an order after a payment operation
type OrderResponse struct {
	ID                      uuid.UUID       `json:"id"`
	OrderNumber             string          `json:"orderNumber"`
	Total                   decimal.Decimal `json:"total"`
	Currency                string          `json:"currency"`
	Status                  string          `json:"status"`
	PaymentStatus           string          `json:"paymentStatus"`
	ExternalPaymentIntentID string          `json:"paymentIntentId,omitempty"`
	RefundReason            string          `json:"refundReason,omitempty"`
	RefundedAt              *time.Time      `json:"refundedAt,omitempty"`
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func toSubscriptionResponse(s *domainBilling.SubscriptionSnapshot) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                 s.ID,
		Status:             s.Status,
		CurrentPeriodStart: unixTime(s.CurrentPeriodStart),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CancelAt:           unixTime(s.CancelAt),
		Items:              make([]SubscriptionItemResponse, 0, len(s.Items)),
	}
	// Malformed period ends are left out rather than guessed
	if sec, err := strconv.ParseInt(string(s.CurrentPeriodEnd), 10, 64); err == nil {
		resp.CurrentPeriodEnd = unixTime(sec)
	}
	for _, item := range s.Items {
		resp.Items = append(resp.Items, SubscriptionItemResponse{
			PriceID:     item.PriceID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitAmount:  item.UnitAmount,
			Currency:    item.Currency,
			Interval:    item.Interval,
		})
	}
	return resp
}

func toCurrentSubscriptionResponse(cur *billingapp.CurrentSubscription) CurrentSubscriptionResponse {
	resp := CurrentSubscriptionResponse{HasActiveSubscription: cur.HasActiveSubscription}
	if cur.Subscription != nil {
		sub := toSubscriptionResponse(cur.Subscription)
		resp.Subscription = &sub
	}
	if cur.Product != nil {
		product := catalogapp.ToProductResponse(cur.Product)
		resp.Product = &product
	}
	return resp
}

func toInvoiceResponses(invoices []domainBilling.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = InvoiceResponse{
			ID:          inv.ID,
			Number:      inv.Number,
			Status:      inv.Status,
			AmountDue:   inv.AmountDue,
			AmountPaid:  inv.AmountPaid,
			Currency:    inv.Currency,
			HostedURL:   inv.HostedURL,
			PDFURL:      inv.PDFURL,
			Created:     inv.Created,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
		}
	}
	return out
}

func toPaymentMethodResponse(pm domainBilling.PaymentMethod, defaultID string) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:        pm.ID,
		Brand:     pm.Brand,
		Last4:     pm.Last4,
		ExpMonth:  pm.ExpMonth,
		ExpYear:   pm.ExpYear,
		IsDefault: pm.ID == defaultID,
	}
}

func toPaymentMethodsResponse(pms *billingapp.PaymentMethods) PaymentMethodsResponse {
	resp := PaymentMethodsResponse{
		PaymentMethods:         make([]PaymentMethodResponse, len(pms.Methods)),
		DefaultPaymentMethodID: pms.Default,
	}
	for i, pm := range pms.Methods {
		resp.PaymentMethods[i] = toPaymentMethodResponse(pm, pms.Default)
	}
	return resp
}

func toPaymentIntentResponse(pi *domainBilling.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Status:          pi.Status,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
	}
}

func toOrderResponse(o *trade.Order) OrderResponse {
	return OrderResponse{
		ID:                      o.ID,
		OrderNumber:             o.OrderNumber,
		Total:                   o.Total,
		Currency:                o.Currency,
		Status:                  string(o.Status),
		PaymentStatus:           string(o.PaymentStatus),
		ExternalPaymentIntentID: o.ExternalPaymentIntentID,
		RefundReason:            o.RefundReason,
		RefundedAt:              o.RefundedAt,
	}
}
