package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/infrastructure/config"
)

// StripeGateway implements domainBilling.Gateway against the Stripe API.
// Each instance owns its client and key; nothing is set on the stripe package globals.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
	tolerance     time.Duration
	logger        *zap.Logger
}

type gatewayOptions struct {
	backend stripe.Backend
	apiURL  string
}

// Option customizes a StripeGateway
type Option func(*gatewayOptions)

// WithBackend replaces the HTTP backend, used by tests
func WithBackend(backend stripe.Backend) Option {
	return func(o *gatewayOptions) { o.backend = backend }
}

// WithAPIURL points the gateway at another endpoint such as stripe-mock
func WithAPIURL(url string) Option {
	return func(o *gatewayOptions) { o.apiURL = url }
}

var _ domainBilling.Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway. Network retries are disabled; callers decide.
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger, opts ...Option) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}

	o := gatewayOptions{apiURL: cfg.APIURL}
	for _, opt := range opts {
		opt(&o)
	}

	backend := o.backend
	if backend == nil {
		backendCfg := &stripe.BackendConfig{
			HTTPClient:        &http.Client{Timeout: cfg.RequestTimeout},
			MaxNetworkRetries: stripe.Int64(0),
		}
		if o.apiURL != "" {
			backendCfg.URL = stripe.String(o.apiURL)
		}
		backend = stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	}

	return &StripeGateway{
		sc:            client.New(cfg.SecretKey, &stripe.Backends{API: backend, Uploads: backend}),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     cfg.WebhookTolerance,
		logger:        logger.Named("stripe"),
	}, nil
}

// wrapError converts a provider failure into *GatewayError, keeping the provider message
func (g *StripeGateway) wrapError(op string, err error, fields ...zap.Field) error {
	gerr := &domainBilling.GatewayError{Op: op, Err: err}
	var serr *stripe.Error
	if errors.As(err, &serr) {
		gerr.Message = serr.Msg
		gerr.Code = string(serr.Code)
		gerr.HTTPStatus = serr.HTTPStatusCode
	}
	g.logger.Error("Stripe request failed",
		append(fields,
			zap.String("op", op),
			zap.String("code", gerr.Code),
			zap.Int("http_status", gerr.HTTPStatus),
			zap.Error(err))...)
	return gerr
}

// CreateCustomer creates a customer and returns its id
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := g.sc.Customers.New(params)
	if err != nil {
		return "", g.wrapError("create customer", err, zap.String("email", email))
	}

	g.logger.Info("Created Stripe customer", zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateCheckoutSession starts a hosted subscription checkout.
// Metadata must carry the user id; it is copied onto the subscription so
// webhook processing can recover the user when the customer lookup misses.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input domainBilling.CheckoutSessionInput) (*domainBilling.CheckoutSession, error) {
	if input.Metadata[domainBilling.MetadataUserID] == "" {
		return nil, domainBilling.ErrMissingUserMetadata
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(input.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(input.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:       stripe.String(input.SuccessURL),
		CancelURL:        stripe.String(input.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: map[string]string{}},
	}
	params.Context = ctx
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
		params.SubscriptionData.Metadata[k] = v
	}

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, g.wrapError("create checkout session", err, zap.String("customer_id", input.CustomerID))
	}

	g.logger.Info("Created checkout session",
		zap.String("session_id", sess.ID),
		zap.String("customer_id", input.CustomerID),
		zap.String("price_id", input.PriceID))
	return &domainBilling.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ChangeSubscriptionPrice swaps the price of the first item. The provider computes prorations.
func (g *StripeGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*domainBilling.SubscriptionSnapshot, error) {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := g.sc.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return nil, g.wrapError("get subscription", err, zap.String("subscription_id", subscriptionID))
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, &domainBilling.GatewayError{Op: "change subscription price", Message: "Subscription has no items"}
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(priceID)},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx

	updated, err := g.sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, g.wrapError("change subscription price", err, zap.String("subscription_id", subscriptionID))
	}

	g.logger.Info("Changed subscription price",
		zap.String("subscription_id", subscriptionID),
		zap.String("price_id", priceID))
	return snapshotFromSubscription(updated), nil
}

// SetCancelAtPeriodEnd schedules or withdraws cancellation at the end of the period
func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*domainBilling.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx

	sub, err := g.sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, g.wrapError("set cancel at period end", err, zap.String("subscription_id", subscriptionID))
	}

	g.logger.Info("Updated cancel at period end",
		zap.String("subscription_id", subscriptionID),
		zap.Bool("cancel_at_period_end", cancel))
	return snapshotFromSubscription(sub), nil
}

// GetSubscription reads the subscription live from the provider
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*domainBilling.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price.product")

	sub, err := g.sc.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, g.wrapError("get subscription", err, zap.String("subscription_id", subscriptionID))
	}
	return snapshotFromSubscription(sub), nil
}

// CreateSubscription creates an incomplete subscription whose first invoice
// is confirmed client-side with the returned secret
func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string, trialDays int64) (*domainBilling.NewSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	if trialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(trialDays)
	}

	sub, err := g.sc.Subscriptions.New(params)
	if err != nil {
		return nil, g.wrapError("create subscription", err, zap.String("customer_id", customerID))
	}

	out := &domainBilling.NewSubscription{Subscription: *snapshotFromSubscription(sub)}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}

	g.logger.Info("Created subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("customer_id", customerID),
		zap.String("status", string(sub.Status)))
	return out, nil
}

// CancelSubscriptionNow cancels immediately
func (g *StripeGateway) CancelSubscriptionNow(ctx context.Context, subscriptionID string) (*domainBilling.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := g.sc.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return nil, g.wrapError("cancel subscription", err, zap.String("subscription_id", subscriptionID))
	}

	g.logger.Info("Canceled subscription", zap.String("subscription_id", subscriptionID))
	return snapshotFromSubscription(sub), nil
}

// ListInvoices returns the most recent invoices of a customer
func (g *StripeGateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]domainBilling.Invoice, error) {
	params := &stripe.InvoiceListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true

	invoices := make([]domainBilling.Invoice, 0, limit)
	iter := g.sc.Invoices.List(params)
	for iter.Next() {
		invoices = append(invoices, invoiceFromStripe(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		return nil, g.wrapError("list invoices", err, zap.String("customer_id", customerID))
	}
	return invoices, nil
}

// ListPaymentMethods returns the cards attached to a customer
func (g *StripeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]domainBilling.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	methods := []domainBilling.PaymentMethod{}
	iter := g.sc.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, paymentMethodFromStripe(iter.PaymentMethod()))
	}
	if err := iter.Err(); err != nil {
		return nil, g.wrapError("list payment methods", err, zap.String("customer_id", customerID))
	}
	return methods, nil
}

// DefaultPaymentMethod returns the customer's invoice default, or ""
func (g *StripeGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := g.sc.Customers.Get(customerID, params)
	if err != nil {
		return "", g.wrapError("get customer", err, zap.String("customer_id", customerID))
	}
	if cust.InvoiceSettings == nil || cust.InvoiceSettings.DefaultPaymentMethod == nil {
		return "", nil
	}
	return cust.InvoiceSettings.DefaultPaymentMethod.ID, nil
}

// AttachPaymentMethod attaches a payment method to a customer
func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*domainBilling.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx

	pm, err := g.sc.PaymentMethods.Attach(paymentMethodID, params)
	if err != nil {
		return nil, g.wrapError("attach payment method", err,
			zap.String("customer_id", customerID),
			zap.String("payment_method_id", paymentMethodID))
	}
	out := paymentMethodFromStripe(pm)
	return &out, nil
}

// DetachPaymentMethod removes a payment method from its customer
func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := g.sc.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return g.wrapError("detach payment method", err, zap.String("payment_method_id", paymentMethodID))
	}
	return nil
}

// SetDefaultPaymentMethod makes the method the customer's invoice default
func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := g.sc.Customers.Update(customerID, params); err != nil {
		return g.wrapError("set default payment method", err,
			zap.String("customer_id", customerID),
			zap.String("payment_method_id", paymentMethodID))
	}
	return nil
}

// CreateSetupIntent prepares a card to be saved and returns the client secret
func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{string(stripe.PaymentMethodTypeCard)}),
	}
	params.Context = ctx

	si, err := g.sc.SetupIntents.New(params)
	if err != nil {
		return "", g.wrapError("create setup intent", err, zap.String("customer_id", customerID))
	}
	return si.ClientSecret, nil
}

// CreatePaymentIntent creates a one-time payment
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, input domainBilling.PaymentIntentInput) (*domainBilling.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(domainBilling.ToMinorUnits(input.Amount)),
		Currency: stripe.String(input.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, g.wrapError("create payment intent", err, zap.String("customer_id", input.CustomerID))
	}

	g.logger.Info("Created payment intent",
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", pi.Amount))
	return &domainBilling.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// CreateRefund refunds a payment intent, fully when no amount is given
func (g *StripeGateway) CreateRefund(ctx context.Context, input domainBilling.RefundInput) (*domainBilling.Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(input.PaymentIntentID)}
	params.Context = ctx
	if input.Amount != nil {
		params.Amount = stripe.Int64(domainBilling.ToMinorUnits(*input.Amount))
	}
	if input.Reason != "" {
		params.Reason = stripe.String(input.Reason)
	}

	r, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, g.wrapError("create refund", err, zap.String("payment_intent_id", input.PaymentIntentID))
	}

	g.logger.Info("Created refund",
		zap.String("refund_id", r.ID),
		zap.String("payment_intent_id", input.PaymentIntentID))
	return &domainBilling.Refund{ID: r.ID, Status: string(r.Status), Amount: r.Amount}, nil
}

// CreateProduct creates a provider product
func (g *StripeGateway) CreateProduct(ctx context.Context, name, description string) (string, error) {
	params := &stripe.ProductParams{Name: stripe.String(name)}
	params.Context = ctx
	if description != "" {
		params.Description = stripe.String(description)
	}

	p, err := g.sc.Products.New(params)
	if err != nil {
		return "", g.wrapError("create product", err, zap.String("name", name))
	}
	return p.ID, nil
}

// CreatePrice creates a one-time or recurring price
func (g *StripeGateway) CreatePrice(ctx context.Context, input domainBilling.PriceInput) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(input.ProductID),
		UnitAmount: stripe.Int64(input.UnitAmount),
		Currency:   stripe.String(input.Currency),
	}
	params.Context = ctx
	if input.Recurring {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval:      stripe.String(input.Interval),
			IntervalCount: stripe.Int64(max(input.IntervalCount, 1)),
		}
	}

	p, err := g.sc.Prices.New(params)
	if err != nil {
		return "", g.wrapError("create price", err, zap.String("product_id", input.ProductID))
	}
	return p.ID, nil
}
