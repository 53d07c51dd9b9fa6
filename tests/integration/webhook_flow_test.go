package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	billingapp "github.com/blibbers/vibekit/internal/application/billing"
	catalogapp "github.com/blibbers/vibekit/internal/application/catalog"
	"github.com/blibbers/vibekit/internal/domain/identity"
	"github.com/blibbers/vibekit/internal/domain/trade"
	"github.com/blibbers/vibekit/internal/infrastructure/auth"
	"github.com/blibbers/vibekit/internal/infrastructure/billing"
	"github.com/blibbers/vibekit/internal/infrastructure/cache"
	"github.com/blibbers/vibekit/internal/infrastructure/config"
	"github.com/blibbers/vibekit/internal/infrastructure/persistence"
	"github.com/blibbers/vibekit/internal/interfaces/http/handler"
	"github.com/blibbers/vibekit/internal/interfaces/http/middleware"
	"github.com/blibbers/vibekit/internal/interfaces/http/router"
)

const flowWebhookSecret = "whsec_integration"

type flowEnv struct {
	engine   *gin.Engine
	users    *persistence.GormUserRepository
	orders   *persistence.GormOrderRepository
	verifier *auth.TokenVerifier
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	testDB := NewTestDB(t)
	events, err := cache.NewRedisEventStore(context.Background(), NewTestRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = events.Close() })

	gateway, err := billing.NewStripeGateway(config.StripeConfig{
		SecretKey:        "sk_test_integration",
		WebhookSecret:    flowWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
		RequestTimeout:   time.Second,
	}, log)
	require.NoError(t, err)

	users := persistence.NewGormUserRepository(testDB.DB)
	products := persistence.NewGormProductRepository(testDB.DB)
	orders := persistence.NewGormOrderRepository(testDB.DB)
	verifier := auth.NewTokenVerifier(config.JWTConfig{Secret: "integration-secret", Issuer: "billing-test"})

	limiter := middleware.NewRateLimiter(100, 100)
	t.Cleanup(limiter.Stop)

	processor := billingapp.NewWebhookProcessor(billingapp.WebhookProcessorConfig{
		Gateway: gateway,
		Users:   users,
		Orders:  orders,
		Events:  events,
		Logger:  log,
	})
	payments := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		Users:   users,
		Orders:  orders,
		Gateway: gateway,
		Logger:  log,
	})

	engine := router.NewEngine(router.Config{
		ServiceName:    "billing-test",
		Verifier:       verifier,
		WebhookLimiter: limiter,
		Logger:         log,
	}, router.Handlers{
		Health:        handler.NewHealthHandler("billing-test", testDB.Database),
		Webhook:       handler.NewWebhookHandler(processor),
		Subscriptions: handler.NewSubscriptionHandler(billingapp.NewSubscriptionService(users, products, gateway, log)),
		Payments:      handler.NewPaymentHandler(payments),
		Products:      handler.NewProductHandler(catalogapp.NewProductService(products, gateway, "usd", log)),
	})

	return &flowEnv{engine: engine, users: users, orders: orders, verifier: verifier}
}

func (e *flowEnv) deliver(t *testing.T, id, eventType string, object map[string]any) (*httptest.ResponseRecorder, handler.WebhookResponse) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    flowWebhookSecret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.SignatureHeader, signed.Header)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp handler.WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func (e *flowEnv) subscriptionStatus(t *testing.T, user *identity.User) bool {
	t.Helper()
	token, err := e.verifier.Sign(user.ID, "user", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			HasActiveSubscription bool `json:"hasActiveSubscription"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	return body.Data.HasActiveSubscription
}

func subscriptionObject(status string, periodEnd int64) map[string]any {
	return map[string]any{
		"id":                 "sub_flow",
		"object":             "subscription",
		"customer":           "cus_flow",
		"status":             status,
		"current_period_end": periodEnd,
		"items": map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "si_flow", "price": map[string]any{"id": "price_flow"}},
			},
		},
	}
}

func TestWebhookSubscriptionLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newFlowEnv(t)
	ctx := context.Background()

	user, err := identity.NewUser("flow@example.com", "Flow", "User")
	require.NoError(t, err)
	require.NoError(t, env.users.Create(ctx, user))
	require.NoError(t, env.users.UpdateBillingCustomerID(ctx, user.ID, "cus_flow"))
	assert.False(t, env.subscriptionStatus(t, user))

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	w, resp := env.deliver(t, "evt_flow_1", "customer.subscription.created", subscriptionObject("active", periodEnd.Unix()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Received)
	assert.Equal(t, "evt_flow_1", resp.EventID)

	stored, err := env.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Subscription)
	assert.Equal(t, "sub_flow", stored.Subscription.ID)
	assert.Equal(t, "price_flow", stored.Subscription.Plan)
	assert.True(t, periodEnd.Equal(stored.Subscription.CurrentPeriodEnd))
	assert.True(t, env.subscriptionStatus(t, user))

	// redelivery of the same event is acknowledged without reapplying it
	w, resp = env.deliver(t, "evt_flow_1", "customer.subscription.created", subscriptionObject("active", periodEnd.Unix()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Event already processed", resp.Message)

	w, _ = env.deliver(t, "evt_flow_2", "customer.subscription.updated", subscriptionObject("past_due", periodEnd.Unix()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.subscriptionStatus(t, user))

	w, _ = env.deliver(t, "evt_flow_3", "customer.subscription.deleted", subscriptionObject("canceled", periodEnd.Unix()))
	require.Equal(t, http.StatusOK, w.Code)
	stored, err = env.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Subscription)
}

func TestWebhookUnknownCustomerIsAcknowledged_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newFlowEnv(t)

	w, resp := env.deliver(t, "evt_orphan", "customer.subscription.updated", subscriptionObject("active", time.Now().Unix()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Received)
	assert.Equal(t, "No matching user", resp.Message)
}

func TestWebhookPaymentMarksOrderPaid_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newFlowEnv(t)
	ctx := context.Background()

	user, err := identity.NewUser("buyer@example.com", "Buy", "Er")
	require.NoError(t, err)
	require.NoError(t, env.users.Create(ctx, user))
	order, err := trade.NewOrder(user.ID, decimal.RequireFromString("25.00"), "usd")
	require.NoError(t, err)
	order.AttachPaymentIntent("pi_flow")
	require.NoError(t, env.orders.Create(ctx, order))

	w, resp := env.deliver(t, "evt_pay_1", "payment_intent.succeeded", map[string]any{
		"id":       "pi_flow",
		"object":   "payment_intent",
		"amount":   2500,
		"currency": "usd",
		"status":   "succeeded",
		"metadata": map[string]string{"orderId": order.ID.String()},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Order paid", resp.Message)
	stored, err := env.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pi_flow", stored.ExternalPaymentIntentID)
}

func TestWebhookRejectsForgedSignature_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newFlowEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt_forged"}`)))
	req.Header.Set(handler.SignatureHeader, "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
