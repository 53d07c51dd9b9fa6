package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/blibbers/vibekit/internal/interfaces/http/dto"
	"github.com/blibbers/vibekit/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newEngine returns an engine that authenticates every request as userID.
// A nil userID leaves the request anonymous.
func newEngine(userID *uuid.UUID) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	if userID != nil {
		id := *userID
		engine.Use(func(c *gin.Context) {
			c.Set(middleware.JWTUserIDKey, id)
			c.Next()
		})
	}
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// envelope decodes a response body with Data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptions) GetCurrentSubscription(ctx context.Context, userID uuid.UUID) (*billingapp.CurrentSubscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.CurrentSubscription), args.Error(1)
}

func (m *MockSubscriptions) CreateCheckout(ctx context.Context, userID uuid.UUID, input billingapp.CheckoutInput) (*domainBilling.CheckoutSession, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.CheckoutSession), args.Error(1)
}

func (m *MockSubscriptions) ChangePlan(ctx context.Context, userID uuid.UUID, priceID string) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, userID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockSubscriptions) Cancel(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockSubscriptions) Resume(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockSubscriptions) ListInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]domainBilling.Invoice, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainBilling.Invoice), args.Error(1)
}

func (m *MockSubscriptions) ListPaymentMethods(ctx context.Context, userID uuid.UUID) (*billingapp.PaymentMethods, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.PaymentMethods), args.Error(1)
}

func (m *MockSubscriptions) CreateSetupIntent(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSubscriptions) AddPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) (*domainBilling.PaymentMethod, error) {
	args := m.Called(ctx, userID, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.PaymentMethod), args.Error(1)
}

func (m *MockSubscriptions) RemovePaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	return m.Called(ctx, userID, paymentMethodID).Error(0)
}

func (m *MockSubscriptions) SetDefaultPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	return m.Called(ctx, userID, paymentMethodID).Error(0)
}

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string, metadata map[string]string) (*domainBilling.PaymentIntent, error) {
	args := m.Called(ctx, userID, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.PaymentIntent), args.Error(1)
}

func (m *MockPayments) CreateOrderPayment(ctx context.Context, userID, orderID uuid.UUID) (*domainBilling.PaymentIntent, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.PaymentIntent), args.Error(1)
}

func (m *MockPayments) CreateSubscription(ctx context.Context, userID uuid.UUID, priceID string, trialDays int64) (*domainBilling.NewSubscription, error) {
	args := m.Called(ctx, userID, priceID, trialDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.NewSubscription), args.Error(1)
}

func (m *MockPayments) CancelSubscriptionNow(ctx context.Context, userID uuid.UUID) (*domainBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainBilling.SubscriptionSnapshot), args.Error(1)
}

func (m *MockPayments) RefundOrder(ctx context.Context, orderID uuid.UUID, reason string) (*trade.Order, error) {
	args := m.Called(ctx, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

type MockProducts struct {
	mock.Mock
}

func (m *MockProducts) Create(ctx context.Context, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProducts) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProducts) ListActive(ctx context.Context) ([]catalogapp.ProductResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalogapp.ProductResponse), args.Error(1)
}

// processorFunc adapts a function to EventProcessor
type processorFunc func(ctx context.Context, payload []byte, signature string) (*billingapp.EventAck, error)

func (f processorFunc) Process(ctx context.Context, payload []byte, signature string) (*billingapp.EventAck, error) {
	return f(ctx, payload, signature)
}
