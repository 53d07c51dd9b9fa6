package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// refundReasonRequested is the provider's reason code for merchant-initiated refunds
const refundReasonRequested = "requested_by_customer"

// PaymentService handles one-time payments, direct subscriptions and refunds
type PaymentService struct {
	users           identity.UserRepository
	orders          trade.OrderRepository
	gateway         domainBilling.Gateway
	defaultCurrency string
	now             func() time.Time
	logger          *zap.Logger
}

// PaymentServiceConfig contains the dependencies of PaymentService
type PaymentServiceConfig struct {
	Users           identity.UserRepository
	Orders          trade.OrderRepository
	Gateway         domainBilling.Gateway
	DefaultCurrency string
	Now             func() time.Time
	Logger          *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &PaymentService{
		users:           cfg.Users,
		orders:          cfg.Orders,
		gateway:         cfg.Gateway,
		defaultCurrency: cfg.DefaultCurrency,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
}

// CreatePaymentIntent starts a one-time payment for the user.
// The userId metadata entry always reflects the caller and an orderId entry is
// dropped; order payments go through CreateOrderPayment.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string, metadata map[string]string) (*domainBilling.PaymentIntent, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Amount must be positive")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	md := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		if k == domainBilling.MetadataOrderID {
			continue
		}
		md[k] = v
	}
	md[domainBilling.MetadataUserID] = user.ID.String()

	return s.gateway.CreatePaymentIntent(ctx, domainBilling.PaymentIntentInput{
		Amount:     amount,
		Currency:   s.currency(currency),
		CustomerID: user.BillingCustomerID,
		Metadata:   md,
	})
}

// CreateOrderPayment starts the payment of an order owned by the user and
// records the intent on the order. The webhook marks it paid.
func (s *PaymentService) CreateOrderPayment(ctx context.Context, userID, orderID uuid.UUID) (*domainBilling.PaymentIntent, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID {
		return nil, shared.ErrNotFound
	}
	if order.PaymentStatus == trade.PaymentStatusPaid || order.PaymentStatus == trade.PaymentStatusRefunded {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order is already %s", order.PaymentStatus))
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, domainBilling.PaymentIntentInput{
		Amount:     order.Total,
		Currency:   s.currency(order.Currency),
		CustomerID: user.BillingCustomerID,
		Metadata: map[string]string{
			domainBilling.MetadataUserID:  user.ID.String(),
			domainBilling.MetadataOrderID: order.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	order.AttachPaymentIntent(intent.ID)
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("attach payment intent to order %s: %w", order.ID, err)
	}

	logger.FromContext(ctx, s.logger).Info("Order payment started",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", intent.ID),
	)
	return intent, nil
}

// CreateSubscription subscribes the user directly, without hosted checkout.
// The returned client secret confirms the first payment.
func (s *PaymentService) CreateSubscription(ctx context.Context, userID uuid.UUID, priceID string, trialDays int64) (*domainBilling.NewSubscription, error) {
	if priceID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "priceId is required")
	}
	if trialDays < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "trialDays cannot be negative")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasBillingCustomer() {
		return nil, domainBilling.ErrNoBillingCustomer
	}
	return s.gateway.CreateSubscription(ctx, user.BillingCustomerID, priceID, trialDays)
}

// CancelSubscriptionNow ends the stored subscription immediately
func (s *PaymentService) CancelSubscriptionNow(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionID() == "" {
		return nil, domainBilling.ErrNoSubscription
	}

	snap, err := s.gateway.CancelSubscriptionNow(ctx, user.SubscriptionID())
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("Subscription cancelled immediately",
		zap.String("user_id", user.ID.String()),
		zap.String("subscription_id", snap.ID),
	)
	return snap, nil
}

// RefundOrder refunds a paid order in full
func (s *PaymentService) RefundOrder(ctx context.Context, orderID uuid.UUID, reason string) (*trade.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != trade.PaymentStatusPaid {
		return nil, shared.NewDomainError("INVALID_STATE", "Only paid orders can be refunded")
	}
	if order.ExternalPaymentIntentID == "" {
		return nil, shared.NewDomainError("INVALID_STATE", "Order has no recorded payment")
	}

	refund, err := s.gateway.CreateRefund(ctx, domainBilling.RefundInput{
		PaymentIntentID: order.ExternalPaymentIntentID,
		Reason:          refundReasonRequested,
	})
	if err != nil {
		return nil, err
	}

	if err := order.MarkRefunded(strings.TrimSpace(reason), s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("mark order %s refunded: %w", order.ID, err)
	}

	logger.FromContext(ctx, s.logger).Info("Order refunded",
		zap.String("order_id", order.ID.String()),
		zap.String("refund_id", refund.ID),
		zap.String("refund_status", refund.Status),
	)
	return order, nil
}

func (s *PaymentService) currency(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return s.defaultCurrency
	}
	return c
}
