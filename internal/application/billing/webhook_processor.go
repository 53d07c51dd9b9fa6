package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/blibbers/vibekit/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WebhookProcessor verifies inbound provider events and applies them to local state
type WebhookProcessor struct {
	gateway  domainBilling.Gateway
	users    identity.UserRepository
	orders   trade.OrderRepository
	events   shared.IdempotencyStore
	eventTTL time.Duration
	now      func() time.Time
	metrics  WebhookRecorder
	logger   *zap.Logger
}

// WebhookRecorder observes the outcome of each inbound event
type WebhookRecorder interface {
	Record(ctx context.Context, kind, outcome string, elapsed time.Duration)
}

// Webhook outcomes reported to the WebhookRecorder
const (
	OutcomeApplied      = "applied"
	OutcomeAcknowledged = "acknowledged"
	OutcomeDuplicate    = "duplicate"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
)

// WebhookProcessorConfig contains the dependencies of WebhookProcessor.
// Events may be nil; replays are still harmless because every write is a full replace.
type WebhookProcessorConfig struct {
	Gateway  domainBilling.Gateway
	Users    identity.UserRepository
	Orders   trade.OrderRepository
	Events   shared.IdempotencyStore
	EventTTL time.Duration
	Now      func() time.Time
	Metrics  WebhookRecorder
	Logger   *zap.Logger
}

// NewWebhookProcessor creates a new WebhookProcessor
func NewWebhookProcessor(cfg WebhookProcessorConfig) *WebhookProcessor {
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = shared.DefaultEventRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebhookProcessor{
		gateway:  cfg.Gateway,
		users:    cfg.Users,
		orders:   cfg.Orders,
		events:   cfg.Events,
		eventTTL: cfg.EventTTL,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// EventAck is the outcome of processing one inbound event
type EventAck struct {
	EventID   string
	EventType string
	Kind      domainBilling.Kind
	Handled   bool
	Duplicate bool
	Message   string
}

// Process verifies the raw payload and applies the event.
//
// A *SignatureError or ErrMalformedEvent means nothing was applied. Any other
// error is a local failure and the provider should redeliver.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, signature string) (ack *EventAck, err error) {
	start := time.Now()
	kind := "unknown"
	defer func() {
		p.record(ctx, kind, outcomeOf(ack, err), time.Since(start))
	}()

	event, err := p.gateway.VerifyAndParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	kind = string(event.Kind())

	meta := event.Meta()
	log := logger.FromContext(ctx, p.logger).With(
		zap.String("event_id", meta.ID),
		zap.String("event_type", meta.Type),
	)

	if p.events != nil {
		done, err := p.events.IsProcessed(ctx, meta.ID)
		switch {
		case err != nil:
			log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
		case done:
			log.Info("Duplicate webhook event skipped")
			return &EventAck{
				EventID:   meta.ID,
				EventType: meta.Type,
				Kind:      event.Kind(),
				Duplicate: true,
				Message:   "Event already processed",
			}, nil
		}
	}

	ack, err = p.Dispatch(ctx, event)
	if err != nil {
		return ack, err
	}

	if p.events != nil {
		if _, err := p.events.MarkProcessed(ctx, meta.ID, p.eventTTL); err != nil {
			log.Warn("Failed to record processed event", zap.Error(err))
		}
	}
	return ack, nil
}

func (p *WebhookProcessor) record(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	if p.metrics != nil {
		p.metrics.Record(ctx, kind, outcome, elapsed)
	}
}

func outcomeOf(ack *EventAck, err error) string {
	var sigErr *domainBilling.SignatureError
	switch {
	case errors.As(err, &sigErr), errors.Is(err, domainBilling.ErrMalformedEvent):
		return OutcomeRejected
	case err != nil:
		return OutcomeFailed
	case ack.Duplicate:
		return OutcomeDuplicate
	case ack.Handled:
		return OutcomeApplied
	default:
		return OutcomeAcknowledged
	}
}

// Dispatch applies an already verified event
func (p *WebhookProcessor) Dispatch(ctx context.Context, event domainBilling.Event) (ack *EventAck, err error) {
	meta := event.Meta()
	ctx, span := telemetry.StartSpan(ctx, "billing.webhook."+string(event.Kind()),
		attribute.String("billing.event_id", meta.ID),
		attribute.String("billing.event_type", meta.Type),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	log := logger.FromContext(ctx, p.logger).With(
		zap.String("event_id", meta.ID),
		zap.String("event_type", meta.Type),
	)
	ack = &EventAck{EventID: meta.ID, EventType: meta.Type, Kind: event.Kind()}

	switch e := event.(type) {
	case domainBilling.SubscriptionUpserted:
		err = p.handleSubscriptionUpserted(ctx, log, e, ack)
	case domainBilling.SubscriptionDeleted:
		err = p.handleSubscriptionDeleted(ctx, log, e, ack)
	case domainBilling.PaymentSucceeded:
		err = p.handlePayment(ctx, log, e.Payment, true, ack)
	case domainBilling.PaymentFailed:
		err = p.handlePayment(ctx, log, e.Payment, false, ack)
	case domainBilling.InvoicePaid:
		p.handleInvoicePaid(log, e, ack)
	case domainBilling.Ignored:
		log.Debug("Unhandled webhook event type")
		ack.Message = "Event type not handled"
	default:
		return ack, fmt.Errorf("unsupported event %T", event)
	}

	if err != nil {
		log.Error("Failed to process webhook event", zap.Error(err))
		ack.Message = "Processing failed"
		return ack, err
	}
	return ack, nil
}

func (p *WebhookProcessor) handleSubscriptionUpserted(ctx context.Context, log *zap.Logger, e domainBilling.SubscriptionUpserted, ack *EventAck) error {
	snap := e.Subscription
	log = log.With(
		zap.String("subscription_id", snap.ID),
		zap.String("customer_id", snap.CustomerID),
	)

	user, err := p.resolve(ctx, log, e.ID, snap, ack)
	if user == nil {
		return err
	}

	sub, warning := Reconcile(snap, p.now())
	if warning != nil {
		log.Warn("Invalid subscription period end, using fallback",
			zap.String("raw", string(warning.Raw)),
			zap.String("reason", warning.Reason),
			zap.Time("fallback", sub.CurrentPeriodEnd),
		)
	}
	if !sub.Status.IsKnown() {
		log.Warn("Unknown subscription status mirrored", zap.String("status", sub.Status.String()))
	}

	if err := p.users.SaveSubscription(ctx, user.ID, &sub); err != nil {
		return fmt.Errorf("save subscription for user %s: %w", user.ID, err)
	}
	user.ReplaceSubscription(sub)

	log.Info("Subscription record replaced",
		zap.String("user_id", user.ID.String()),
		zap.String("status", sub.Status.String()),
		zap.String("plan", sub.Plan),
	)
	ack.Handled = true
	ack.Message = "Subscription updated"
	return nil
}

func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, log *zap.Logger, e domainBilling.SubscriptionDeleted, ack *EventAck) error {
	snap := e.Subscription
	log = log.With(
		zap.String("subscription_id", snap.ID),
		zap.String("customer_id", snap.CustomerID),
	)

	user, err := p.resolve(ctx, log, e.ID, snap, ack)
	if user == nil {
		return err
	}

	ack.Handled = true
	if !user.ClearSubscription() {
		log.Info("Subscription already cleared", zap.String("user_id", user.ID.String()))
		ack.Message = "Subscription already cleared"
		return nil
	}

	if err := p.users.SaveSubscription(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("clear subscription for user %s: %w", user.ID, err)
	}

	log.Info("Subscription record cleared", zap.String("user_id", user.ID.String()))
	ack.Message = "Subscription cleared"
	return nil
}

// resolve returns a nil user with a nil error when the event should be acknowledged without action
func (p *WebhookProcessor) resolve(ctx context.Context, log *zap.Logger, eventID string, snap domainBilling.SubscriptionSnapshot, ack *EventAck) (*identity.User, error) {
	user, err := ResolveUser(ctx, p.users, eventID, snap.CustomerID, snap.UserID())
	var warning *domainBilling.UserResolutionWarning
	if errors.As(err, &warning) {
		log.Warn("No user found for subscription event",
			zap.String("metadata_user_id", warning.UserID),
		)
		ack.Message = "No matching user"
		return nil, nil
	}
	return user, err
}

func (p *WebhookProcessor) handlePayment(ctx context.Context, log *zap.Logger, payment domainBilling.PaymentSnapshot, succeeded bool, ack *EventAck) error {
	log = log.With(zap.String("payment_intent_id", payment.ID))

	rawOrderID := payment.OrderID()
	if rawOrderID == "" {
		log.Info("Payment carries no order reference")
		ack.Message = "No order reference"
		return nil
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		log.Warn("Payment carries a malformed order reference", zap.String("order_id", rawOrderID))
		ack.Message = "No matching order"
		return nil
	}

	order, err := p.orders.FindByID(ctx, orderID)
	if errors.Is(err, shared.ErrNotFound) {
		log.Warn("No order found for payment", zap.String("order_id", rawOrderID))
		ack.Message = "No matching order"
		return nil
	}
	if err != nil {
		return fmt.Errorf("find order %s: %w", orderID, err)
	}
	log = log.With(zap.String("order_id", order.ID.String()))

	// Only the intent created for this order may settle it
	if reason := paymentMismatch(order, payment); reason != "" {
		log.Warn("Payment does not belong to order",
			zap.String("reason", reason),
			zap.String("attached_intent_id", order.ExternalPaymentIntentID),
			zap.Int64("amount", payment.Amount),
			zap.String("currency", payment.Currency),
		)
		ack.Message = "Payment does not match order"
		return nil
	}

	if succeeded && order.PaymentStatus == trade.PaymentStatusPaid {
		ack.Handled = true
		ack.Message = "Order already paid"
		return nil
	}

	if succeeded {
		err = order.MarkPaid(payment.ID)
	} else {
		err = order.MarkPaymentFailed(payment.ID)
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		log.Warn("Payment event does not apply to order",
			zap.String("payment_status", string(order.PaymentStatus)),
			zap.String("reason", domainErr.Message),
		)
		ack.Message = domainErr.Message
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}

	if succeeded {
		log.Info("Order marked paid", zap.Int64("amount", payment.Amount), zap.String("currency", payment.Currency))
		ack.Message = "Order paid"
	} else {
		log.Warn("Order payment failed", zap.String("failure", payment.FailureMessage))
		ack.Message = "Order payment failed"
	}
	ack.Handled = true
	return nil
}

func paymentMismatch(order *trade.Order, payment domainBilling.PaymentSnapshot) string {
	switch {
	case order.ExternalPaymentIntentID == "" || order.ExternalPaymentIntentID != payment.ID:
		return "intent"
	case payment.Amount != order.AmountMinor():
		return "amount"
	case !strings.EqualFold(payment.Currency, order.Currency):
		return "currency"
	}
	return ""
}

func (p *WebhookProcessor) handleInvoicePaid(log *zap.Logger, e domainBilling.InvoicePaid, ack *EventAck) {
	log.Info("Invoice paid",
		zap.String("invoice_id", e.Invoice.ID),
		zap.String("customer_id", e.Invoice.CustomerID),
		zap.String("subscription_id", e.Invoice.SubscriptionID),
		zap.Int64("amount_paid", e.Invoice.AmountPaid),
		zap.String("currency", e.Invoice.Currency),
	)
	ack.Handled = true
	ack.Message = "Invoice recorded"
}
