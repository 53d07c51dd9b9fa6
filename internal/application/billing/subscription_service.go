package billing

import (
	"context"
	"errors"
	"fmt"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/catalog"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/infrastructure/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invoice list bounds
const (
	DefaultInvoiceLimit = 10
	MaxInvoiceLimit     = 100
)

// SubscriptionService serves subscription reads and user-initiated changes.
// Changes go to the provider only; the local record follows through webhooks.
type SubscriptionService struct {
	users    identity.UserRepository
	products catalog.ProductRepository
	gateway  domainBilling.Gateway
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	users identity.UserRepository,
	products catalog.ProductRepository,
	gateway domainBilling.Gateway,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		users:    users,
		products: products,
		gateway:  gateway,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// CheckoutInput describes a hosted checkout request
type CheckoutInput struct {
	PriceID    string `validate:"required,max=255"`
	SuccessURL string `validate:"required,http_url"`
	CancelURL  string `validate:"required,http_url"`
}

// CurrentSubscription is the live view of a user's plan.
// Subscription is nil when the user has none or the provider could not be reached.
type CurrentSubscription struct {
	Subscription          *domainBilling.SubscriptionSnapshot
	Product               *catalog.Product
	HasActiveSubscription bool
}

// HasActiveSubscription reports entitlement from the local record, without calling the provider
func (s *SubscriptionService) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.HasActiveSubscription(), nil
}

// GetCurrentSubscription reads the subscription live from the provider and
// joins the matching catalog product. Users without a subscription get the
// free plan, if one exists.
func (s *SubscriptionService) GetCurrentSubscription(ctx context.Context, userID uuid.UUID) (*CurrentSubscription, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &CurrentSubscription{HasActiveSubscription: user.SubscriptionID() != ""}

	if !result.HasActiveSubscription {
		result.Product, err = s.optionalProduct(s.products.FindFreePlan(ctx))
		return result, err
	}

	snap, err := s.gateway.GetSubscription(ctx, user.SubscriptionID())
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("Failed to fetch subscription from provider",
			zap.String("user_id", user.ID.String()),
			zap.String("subscription_id", user.SubscriptionID()),
			zap.Error(err),
		)
		return result, nil
	}
	result.Subscription = snap

	if priceID := snap.FirstPriceID(); priceID != "" {
		result.Product, err = s.optionalProduct(s.products.FindByExternalPriceID(ctx, priceID))
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *SubscriptionService) optionalProduct(product *catalog.Product, err error) (*catalog.Product, error) {
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return product, err
}

// CreateCheckout starts a hosted subscription checkout, creating the provider
// customer on first use
func (s *SubscriptionService) CreateCheckout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*domainBilling.CheckoutSession, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, domainBilling.CheckoutSessionInput{
		CustomerID: customerID,
		PriceID:    input.PriceID,
		SuccessURL: input.SuccessURL,
		CancelURL:  input.CancelURL,
		Metadata:   map[string]string{domainBilling.MetadataUserID: user.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("Checkout session created",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", session.ID),
		zap.String("price_id", input.PriceID),
	)
	return session, nil
}

// ensureCustomer returns the user's provider customer, creating and persisting it if missing
func (s *SubscriptionService) ensureCustomer(ctx context.Context, user *identity.User) (string, error) {
	if user.HasBillingCustomer() {
		return user.BillingCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, user.DisplayName(), map[string]string{
		domainBilling.MetadataUserID: user.ID.String(),
	})
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateBillingCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("save customer for user %s: %w", user.ID, err)
	}
	user.SetBillingCustomerID(customerID)

	logger.FromContext(ctx, s.logger).Info("Billing customer created",
		zap.String("user_id", user.ID.String()),
		zap.String("customer_id", customerID),
	)
	return customerID, nil
}

// ChangePlan moves the user's subscription to priceID with proration
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID uuid.UUID, priceID string) (*domainBilling.SubscriptionSnapshot, error) {
	if priceID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "priceId is required")
	}
	subID, err := s.storedSubscriptionID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.gateway.ChangeSubscriptionPrice(ctx, subID, priceID)
}

// Cancel schedules the subscription to end at the close of the current period
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, true)
}

// Resume withdraws a scheduled cancellation
func (s *SubscriptionService) Resume(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, false)
}

func (s *SubscriptionService) setCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) (*domainBilling.SubscriptionSnapshot, error) {
	subID, err := s.storedSubscriptionID(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.gateway.SetCancelAtPeriodEnd(ctx, subID, cancel)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.logger).Info("Subscription cancellation toggled",
		zap.String("user_id", userID.String()),
		zap.String("subscription_id", subID),
		zap.Bool("cancel_at_period_end", cancel),
	)
	return snap, nil
}

func (s *SubscriptionService) storedSubscriptionID(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.SubscriptionID() == "" {
		return "", domainBilling.ErrNoSubscription
	}
	return user.SubscriptionID(), nil
}

// ListInvoices returns the customer's most recent invoices.
// A limit outside 1..100 is clamped; zero means the default of 10.
func (s *SubscriptionService) ListInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]domainBilling.Invoice, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.gateway.ListInvoices(ctx, customerID, int64(ClampInvoiceLimit(limit)))
}

// ClampInvoiceLimit applies the invoice list bounds
func ClampInvoiceLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultInvoiceLimit
	case limit < 1:
		return 1
	case limit > MaxInvoiceLimit:
		return MaxInvoiceLimit
	}
	return limit
}

// PaymentMethods is the customer's stored cards plus the default one
type PaymentMethods struct {
	Methods []domainBilling.PaymentMethod
	Default string
}

// ListPaymentMethods lists the customer's cards and the default card id
func (s *SubscriptionService) ListPaymentMethods(ctx context.Context, userID uuid.UUID) (*PaymentMethods, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	methods, err := s.gateway.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defaultID, err := s.gateway.DefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &PaymentMethods{Methods: methods, Default: defaultID}, nil
}

// CreateSetupIntent returns a client secret for collecting a new card
func (s *SubscriptionService) CreateSetupIntent(ctx context.Context, userID uuid.UUID) (string, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.gateway.CreateSetupIntent(ctx, customerID)
}

// AddPaymentMethod attaches a collected card to the customer
func (s *SubscriptionService) AddPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*domainBilling.PaymentMethod, error) {
	if paymentMethodID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "paymentMethodId is required")
	}
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.gateway.AttachPaymentMethod(ctx, customerID, paymentMethodID)
}

// RemovePaymentMethod detaches a card after checking it belongs to the user
func (s *SubscriptionService) RemovePaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.requireOwnedMethod(ctx, customerID, paymentMethodID); err != nil {
		return err
	}
	if err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		return err
	}
	logger.FromContext(ctx, s.logger).Info("Payment method removed",
		zap.String("user_id", userID.String()),
		zap.String("payment_method_id", paymentMethodID),
	)
	return nil
}

// SetDefaultPaymentMethod makes an owned card the invoice default
func (s *SubscriptionService) SetDefaultPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.requireOwnedMethod(ctx, customerID, paymentMethodID); err != nil {
		return err
	}
	return s.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
}

func (s *SubscriptionService) requireOwnedMethod(ctx context.Context, customerID, paymentMethodID string) error {
	methods, err := s.gateway.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return err
	}
	for _, m := range methods {
		if m.ID == paymentMethodID {
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Payment method not found")
}

func (s *SubscriptionService) customerID(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasBillingCustomer() {
		return "", domainBilling.ErrNoBillingCustomer
	}
	return user.BillingCustomerID, nil
}
