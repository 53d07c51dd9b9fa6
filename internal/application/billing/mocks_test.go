package billing

import (
	"context"
	"sync"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/catalog"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByBillingCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateBillingCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return m.Called(ctx, id, customerID).Error(0)
}

func (m *MockUserRepository) SaveSubscription(ctx context.Context, id uuid.UUID, sub *identity.Subscription) error {
	return m.Called(ctx, id, sub).Error(0)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByExternalPriceID(ctx context.Context, priceID string) (*catalog.Product, error) {
	args := m.Called(ctx, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindFreePlan(ctx context.Context) (*catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindActive(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

// MockOrderRepository is a mock implementation of trade.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *trade.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*trade.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]trade.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]trade.Order), args.Error(1)
}

// MockGateway is a mock implementation of billing.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, name, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, input domainBilling.CheckoutSessionInput) (*domainBilling.CheckoutSession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, subscriptionID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, subscriptionID, cancel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockGateway) VerifyAndParseWebhook(payload []byte, signatureHeader string) (domainBilling.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domainBilling.Event), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, customerID, priceID string, trialDays int64) (*domainBilling.NewSubscription, error) {
	args := m.Called(ctx, customerID, priceID, trialDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.NewSubscription), args.Error(1)
}

func (m *MockGateway) CancelSubscriptionNow(ctx context.Context, subscriptionID string) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockGateway) ListInvoices(ctx context.Context, customerID string, limit int64) ([]domainBilling.Invoice, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainBilling.Invoice), args.Error(1)
}

func (m *MockGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]domainBilling.PaymentMethod, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainBilling.PaymentMethod), args.Error(1)
}

func (m *MockGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*domainBilling.PaymentMethod, error) {
	args := m.Called(ctx, customerID, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.PaymentMethod), args.Error(1)
}

func (m *MockGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return m.Called(ctx, paymentMethodID).Error(0)
}

func (m *MockGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *MockGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, input domainBilling.PaymentIntentInput) (*domainBilling.PaymentIntent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.PaymentIntent), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, input domainBilling.RefundInput) (*domainBilling.Refund, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.Refund), args.Error(1)
}

func (m *MockGateway) CreateProduct(ctx context.Context, name, description string) (string, error) {
	args := m.Called(ctx, name, description)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePrice(ctx context.Context, input domainBilling.PriceInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// userStore is an in-memory identity.UserRepository that counts subscription writes
type userStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]identity.User
	subWrites  int
	saveErr    error
	backfilled int
}

func newUserStore(users ...*identity.User) *userStore {
	s := &userStore{users: make(map[uuid.UUID]identity.User)}
	for _, u := range users {
		s.users[u.ID] = *u
	}
	return s
}

func (s *userStore) Create(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *userStore) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) FindByBillingCustomerID(_ context.Context, customerID string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if customerID != "" && u.BillingCustomerID == customerID {
			return copyUser(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) UpdateBillingCustomerID(_ context.Context, id uuid.UUID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.BillingCustomerID = customerID
	s.users[id] = u
	s.backfilled++
	return nil
}

func (s *userStore) SaveSubscription(_ context.Context, id uuid.UUID, sub *identity.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if sub == nil {
		u.Subscription = nil
	} else {
		c := *sub
		u.Subscription = &c
	}
	s.users[id] = u
	s.subWrites++
	return nil
}

func (s *userStore) get(id uuid.UUID) *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.users[id])
}

func (s *userStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subWrites
}

func copyUser(u identity.User) *identity.User {
	if u.Subscription != nil {
		c := *u.Subscription
		u.Subscription = &c
	}
	return &u
}
