package billing

import "time"

// Kind identifies which branch of the event union an event belongs to
type Kind string

const (
	KindPaymentSucceeded     Kind = "payment_succeeded"
	KindPaymentFailed        Kind = "payment_failed"
	KindSubscriptionUpserted Kind = "subscription_upserted"
	KindSubscriptionDeleted  Kind = "subscription_deleted"
	KindInvoicePaid          Kind = "invoice_paid"
	KindIgnored              Kind = "ignored"
)

// Provider event type names mapped onto the union
const (
	ProviderPaymentIntentSucceeded  = "payment_intent.succeeded"
	ProviderPaymentIntentFailed     = "payment_intent.payment_failed"
	ProviderSubscriptionCreated     = "customer.subscription.created"
	ProviderSubscriptionUpdated     = "customer.subscription.updated"
	ProviderSubscriptionDeleted     = "customer.subscription.deleted"
	ProviderInvoicePaid             = "invoice.paid"
	ProviderInvoicePaymentSucceeded = "invoice.payment_succeeded"
)

// EventMeta is the envelope shared by every inbound event
type EventMeta struct {
	ID       string
	Type     string
	Created  time.Time
	LiveMode bool
}

// Meta returns the envelope
func (m EventMeta) Meta() EventMeta { return m }

// Event is a verified inbound provider event.
// The set of implementations is closed: only the types in this file satisfy it.
type Event interface {
	Meta() EventMeta
	Kind() Kind
	isEvent()
}

// PaymentSucceeded is a one-time payment that completed
type PaymentSucceeded struct {
	EventMeta
	Payment PaymentSnapshot
}

// PaymentFailed is a one-time payment attempt that failed
type PaymentFailed struct {
	EventMeta
	Payment PaymentSnapshot
}

// SubscriptionUpserted covers both subscription creation and update
type SubscriptionUpserted struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

// SubscriptionDeleted is a subscription that ended
type SubscriptionDeleted struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

// InvoicePaid is a settled invoice
type InvoicePaid struct {
	EventMeta
	Invoice Invoice
}

// Ignored is any event type the system does not act on
type Ignored struct {
	EventMeta
}

func (PaymentSucceeded) Kind() Kind     { return KindPaymentSucceeded }
func (PaymentFailed) Kind() Kind        { return KindPaymentFailed }
func (SubscriptionUpserted) Kind() Kind { return KindSubscriptionUpserted }
func (SubscriptionDeleted) Kind() Kind  { return KindSubscriptionDeleted }
func (InvoicePaid) Kind() Kind          { return KindInvoicePaid }
func (Ignored) Kind() Kind              { return KindIgnored }

func (PaymentSucceeded) isEvent()     {}
func (PaymentFailed) isEvent()        {}
func (SubscriptionUpserted) isEvent() {}
func (SubscriptionDeleted) isEvent()  {}
func (InvoicePaid) isEvent()          {}
func (Ignored) isEvent()              {}
