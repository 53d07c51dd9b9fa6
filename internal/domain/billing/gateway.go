package billing

import "context"

// Gateway is the outbound port to the billing provider.
// Implementations never retry; a failed call returns *GatewayError and the
// caller decides what to do.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*SubscriptionSnapshot, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*SubscriptionSnapshot, error)

	// VerifyAndParseWebhook checks the signature over the exact raw body and
	// decodes the event. Returns *SignatureError on mismatch.
	VerifyAndParseWebhook(payload []byte, signatureHeader string) (Event, error)

	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, trialDays int64) (*NewSubscription, error)
	CancelSubscriptionNow(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)

	ListInvoices(ctx context.Context, customerID string, limit int64) ([]Invoice, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	DefaultPaymentMethod(ctx context.Context, customerID string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)

	CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, input RefundInput) (*Refund, error)
	CreateProduct(ctx context.Context, name, description string) (string, error)
	CreatePrice(ctx context.Context, input PriceInput) (string, error)
}
