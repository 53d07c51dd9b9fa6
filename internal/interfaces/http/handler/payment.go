package handler

import (
	"context"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentUseCases is the payment surface used by PaymentHandler
type PaymentUseCases interface {
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string, metadata map[string]string) (*domainBilling.PaymentIntent, error)
	CreateOrderPayment(ctx context.Context, userID, orderID uuid.UUID) (*domainBilling.PaymentIntent, error)
	CreateSubscription(ctx context.Context, userID uuid.UUID, priceID string, trialDays int64) (*domainBilling.NewSubscription, error)
	CancelSubscriptionNow(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error)
	RefundOrder(ctx context.Context, orderID uuid.UUID, reason string) (*trade.Order, error)
}

// PaymentHandler serves one-time payments, direct subscriptions and refunds
type PaymentHandler struct {
	BaseHandler
	payments PaymentUseCases
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentUseCases) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePaymentIntent godoc
//
//	@ID				createPaymentIntent
//	@Summary		Create a one-time payment intent
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreatePaymentIntentRequest	true	"Amount in major units"
//	@Success		201		{object}	dto.Response{data=PaymentIntentResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		502		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/payments/payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req CreatePaymentIntentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pi, err := h.payments.CreatePaymentIntent(c.Request.Context(), userID, req.Amount, req.Currency, req.Metadata)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentIntentResponse(pi))
}

// CreateOrderPayment creates a payment intent for one of the caller's orders
func (h *PaymentHandler) CreateOrderPayment(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	pi, err := h.payments.CreateOrderPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentIntentResponse(pi))
}

// CreateSubscription creates a subscription that is confirmed client-side
func (h *PaymentHandler) CreateSubscription(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req CreateSubscriptionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.payments.CreateSubscription(c.Request.Context(), userID, req.PriceID, req.TrialDays)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, NewSubscriptionResponse{
		Subscription: toSubscriptionResponse(&created.Subscription),
		ClientSecret: created.ClientSecret,
	})
}

// CancelSubscription cancels the caller's subscription immediately
func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	sub, err := h.payments.CancelSubscriptionNow(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// RefundOrder godoc
//
//	@ID				refundOrder
//	@Summary		Refund a paid order
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Order ID"
//	@Param			request	body		RefundOrderRequest	false	"Refund reason"
//	@Success		200		{object}	dto.Response{data=OrderResponse}
//	@Failure		404		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/admin/orders/{id}/refund [post]
func (h *PaymentHandler) RefundOrder(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req RefundOrderRequest
	// The body is optional
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	order, err := h.payments.RefundOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(order))
}
