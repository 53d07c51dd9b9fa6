package handler

import (
	"context"
	"strconv"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubscriptionUseCases is the subscription management surface used by SubscriptionHandler
type SubscriptionUseCases interface {
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	GetCurrentSubscription(ctx context.Context, userID uuid.UUID) (*billingapp.CurrentSubscription, error)
	CreateCheckout(ctx context.Context, userID uuid.UUID, input billingapp.CheckoutInput) (*domainBilling.CheckoutSession, error)
	ChangePlan(ctx context.Context, userID uuid.UUID, priceID string) (*domainBilling.SubscriptionSnapshot, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error)
	Resume(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]domainBilling.Invoice, error)
	ListPaymentMethods(ctx context.Context, userID uuid.UUID) (*billingapp.PaymentMethods, error)
	CreateSetupIntent(ctx context.Context, userID uuid.UUID) (string, error)
	AddPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*domainBilling.PaymentMethod, error)
	RemovePaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error
}

// SubscriptionHandler serves the authenticated user's subscription endpoints
type SubscriptionHandler struct {
	BaseHandler
	subscriptions SubscriptionUseCases
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptions SubscriptionUseCases) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// GetCurrent godoc
//
//	@ID				getCurrentSubscription
//	@Summary		Get the caller's subscription
//	@Description	Live subscription from the provider with its catalog product. Falls back to the free plan.
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=CurrentSubscriptionResponse}
//	@Failure		401	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/subscriptions/current [get]
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	cur, err := h.subscriptions.GetCurrentSubscription(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCurrentSubscriptionResponse(cur))
}

// GetStatus reports entitlement from the local record
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	active, err := h.subscriptions.HasActiveSubscription(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SubscriptionStatusResponse{HasActiveSubscription: active})
}

// ListInvoices godoc
//
//	@ID				listInvoices
//	@Summary		List the caller's invoices
//	@Tags			subscriptions
//	@Produce		json
//	@Param			limit	query		int	false	"Max invoices (1-100, default 10)"
//	@Success		200		{object}	dto.Response{data=[]InvoiceResponse}
//	@Security		BearerAuth
//	@Router			/subscriptions/invoices [get]
func (h *SubscriptionHandler) ListInvoices(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	// Unparseable limits fall back to the default
	limit, _ := strconv.Atoi(c.Query("limit"))

	invoices, err := h.subscriptions.ListInvoices(c.Request.Context(), userID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponses(invoices))
}

// CreateCheckout godoc
//
//	@ID				createCheckout
//	@Summary		Start a hosted subscription checkout
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckoutRequest	true	"Checkout request"
//	@Success		200		{object}	dto.Response{data=CheckoutResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		502		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/subscriptions/checkout [post]
func (h *SubscriptionHandler) CreateCheckout(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.subscriptions.CreateCheckout(c.Request.Context(), userID, billingapp.CheckoutInput{
		PriceID:    req.PriceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CheckoutResponse{SessionID: session.ID, RedirectURL: session.URL})
}

// ChangePlan moves the caller's subscription to another price
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req ChangePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sub, err := h.subscriptions.ChangePlan(c.Request.Context(), userID, req.PriceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// Cancel schedules cancellation at period end
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	h.updateSubscription(c, h.subscriptions.Cancel)
}

// Resume withdraws a scheduled cancellation
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	h.updateSubscription(c, h.subscriptions.Resume)
}

func (h *SubscriptionHandler) updateSubscription(c *gin.Context, op func(context.Context, uuid.UUID) (*domainBilling.SubscriptionSnapshot, error)) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	sub, err := op(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSubscriptionResponse(sub))
}

// ListPaymentMethods lists the caller's stored cards
func (h *SubscriptionHandler) ListPaymentMethods(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	pms, err := h.subscriptions.ListPaymentMethods(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentMethodsResponse(pms))
}

// CreateSetupIntent returns a client secret for collecting a card
func (h *SubscriptionHandler) CreateSetupIntent(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	secret, err := h.subscriptions.CreateSetupIntent(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SetupIntentResponse{ClientSecret: secret})
}

// AddPaymentMethod attaches a tokenized card to the caller
func (h *SubscriptionHandler) AddPaymentMethod(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	var req AddPaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pm, err := h.subscriptions.AddPaymentMethod(c.Request.Context(), userID, req.PaymentMethodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentMethodResponse(*pm, ""))
}

// RemovePaymentMethod detaches one of the caller's cards
func (h *SubscriptionHandler) RemovePaymentMethod(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	pmID := c.Param("id")
	if err := h.subscriptions.RemovePaymentMethod(c.Request.Context(), userID, pmID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"paymentMethodId": pmID})
}

// SetDefaultPaymentMethod makes one of the caller's cards the invoice default
func (h *SubscriptionHandler) SetDefaultPaymentMethod(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}
	pmID := c.Param("id")
	if err := h.subscriptions.SetDefaultPaymentMethod(c.Request.Context(), userID, pmID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"defaultPaymentMethodId": pmID})
}
