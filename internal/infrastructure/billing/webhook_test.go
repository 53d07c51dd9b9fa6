package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
)

func newWebhookGateway(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(testStripeConfig(), zap.NewNop(), WithBackend(&mockBackend{}))
	require.NoError(t, err)
	return g
}

func eventPayload(t *testing.T, id, eventType string, object any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     1700000000,
		"livemode":    false,
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return body
}

func sign(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}

func TestVerifyAndParseWebhook_SubscriptionUpdated(t *testing.T) {
	g := newWebhookGateway(t)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payload := eventPayload(t, "evt_1", "customer.subscription.updated", subscriptionJSON("sub_1", "price_basic", periodEnd))

	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	upserted, ok := event.(domainBilling.SubscriptionUpserted)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, domainBilling.KindSubscriptionUpserted, event.Kind())
	assert.Equal(t, "evt_1", event.Meta().ID)
	assert.Equal(t, "customer.subscription.updated", event.Meta().Type)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), event.Meta().Created)

	sub := upserted.Subscription
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, domainBilling.TimestampFromUnix(periodEnd), sub.CurrentPeriodEnd)
	assert.Equal(t, "price_basic", sub.FirstPriceID())
	assert.Equal(t, "u-1", sub.UserID())
	item, _ := sub.FirstItem()
	assert.Equal(t, "prod_1", item.ProductID)
	assert.Equal(t, "Basic", item.ProductName)
}

func TestVerifyAndParseWebhook_SubscriptionCreatedIsUpsert(t *testing.T) {
	g := newWebhookGateway(t)
	payload := eventPayload(t, "evt_2", "customer.subscription.created", subscriptionJSON("sub_1", "price_basic", 1))

	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	assert.IsType(t, domainBilling.SubscriptionUpserted{}, event)
}

func TestVerifyAndParseWebhook_MalformedPeriodEndIsPreserved(t *testing.T) {
	g := newWebhookGateway(t)
	obj := subscriptionJSON("sub_1", "price_basic", 0)
	obj["current_period_end"] = "not-a-number"
	obj["customer"] = map[string]any{"id": "cus_expanded"}
	payload := eventPayload(t, "evt_3", "customer.subscription.updated", obj)

	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	sub := event.(domainBilling.SubscriptionUpserted).Subscription
	assert.Equal(t, domainBilling.RawTimestamp("not-a-number"), sub.CurrentPeriodEnd)
	assert.Equal(t, "cus_expanded", sub.CustomerID)
}

func TestVerifyAndParseWebhook_SubscriptionDeleted(t *testing.T) {
	g := newWebhookGateway(t)
	obj := subscriptionJSON("sub_1", "price_basic", time.Now().Unix())
	obj["status"] = "canceled"
	payload := eventPayload(t, "evt_4", "customer.subscription.deleted", obj)

	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	deleted, ok := event.(domainBilling.SubscriptionDeleted)
	require.True(t, ok)
	assert.Equal(t, "canceled", deleted.Subscription.Status)
}

func TestVerifyAndParseWebhook_Payments(t *testing.T) {
	g := newWebhookGateway(t)
	pi := map[string]any{
		"id":       "pi_1",
		"object":   "payment_intent",
		"amount":   1999,
		"currency": "usd",
		"status":   "succeeded",
		"customer": "cus_1",
		"metadata": map[string]string{"orderId": "ord-1"},
	}

	payload := eventPayload(t, "evt_5", "payment_intent.succeeded", pi)
	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	succeeded, ok := event.(domainBilling.PaymentSucceeded)
	require.True(t, ok)
	assert.Equal(t, "pi_1", succeeded.Payment.ID)
	assert.Equal(t, "ord-1", succeeded.Payment.OrderID())
	assert.Equal(t, int64(1999), succeeded.Payment.Amount)

	pi["status"] = "requires_payment_method"
	pi["last_payment_error"] = map[string]any{"message": "Your card was declined."}
	payload = eventPayload(t, "evt_6", "payment_intent.payment_failed", pi)
	event, err = g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	failed, ok := event.(domainBilling.PaymentFailed)
	require.True(t, ok)
	assert.Equal(t, "Your card was declined.", failed.Payment.FailureMessage)
}

func TestVerifyAndParseWebhook_InvoicePaid(t *testing.T) {
	g := newWebhookGateway(t)
	for _, eventType := range []string{"invoice.paid", "invoice.payment_succeeded"} {
		payload := eventPayload(t, "evt_inv", eventType, map[string]any{
			"id":           "in_1",
			"object":       "invoice",
			"customer":     "cus_1",
			"subscription": "sub_1",
			"amount_paid":  1500,
			"currency":     "usd",
		})

		event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

		require.NoError(t, err)
		paid, ok := event.(domainBilling.InvoicePaid)
		require.True(t, ok, eventType)
		assert.Equal(t, "sub_1", paid.Invoice.SubscriptionID)
		assert.Equal(t, int64(1500), paid.Invoice.AmountPaid)
	}
}

func TestVerifyAndParseWebhook_UnknownTypeIsIgnored(t *testing.T) {
	g := newWebhookGateway(t)
	payload := eventPayload(t, "evt_7", "customer.tax_id.created", map[string]any{"id": "txi_1"})

	event, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	require.NoError(t, err)
	assert.Equal(t, domainBilling.KindIgnored, event.Kind())
	assert.Equal(t, "customer.tax_id.created", event.Meta().Type)
}

func TestVerifyAndParseWebhook_SignatureFailures(t *testing.T) {
	g := newWebhookGateway(t)
	payload := eventPayload(t, "evt_8", "customer.subscription.updated", subscriptionJSON("sub_1", "price_basic", 1))

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0x01

	tests := []struct {
		name    string
		payload []byte
		header  string
	}{
		{"missing header", payload, ""},
		{"wrong secret", payload, sign(payload, "whsec_other", time.Now())},
		{"tampered byte", tampered, sign(payload, testWebhookSecret, time.Now())},
		{"outside tolerance", payload, sign(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		{"garbage header", payload, "t=abc,v1=zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := g.VerifyAndParseWebhook(tt.payload, tt.header)

			assert.Nil(t, event)
			var sigErr *domainBilling.SignatureError
			assert.ErrorAs(t, err, &sigErr)
		})
	}
}

func TestVerifyAndParseWebhook_MalformedObject(t *testing.T) {
	g := newWebhookGateway(t)
	payload := eventPayload(t, "evt_9", "customer.subscription.updated", map[string]any{
		"id":    "sub_1",
		"items": "not-an-object",
	})

	_, err := g.VerifyAndParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))

	assert.ErrorIs(t, err, domainBilling.ErrMalformedEvent)
}
