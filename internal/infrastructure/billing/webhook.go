package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
)

// VerifyAndParseWebhook verifies the signature over the exact payload bytes
// and maps the provider event onto the closed domain event union.
func (g *StripeGateway) VerifyAndParseWebhook(payload []byte, signatureHeader string) (domainBilling.Event, error) {
	if signatureHeader == "" {
		return nil, &domainBilling.SignatureError{Reason: "missing signature header"}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                g.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		g.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, &domainBilling.SignatureError{Reason: err.Error(), Err: err}
	}

	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (domainBilling.Event, error) {
	meta := domainBilling.EventMeta{
		ID:       event.ID,
		Type:     string(event.Type),
		Created:  unixOrZero(event.Created),
		LiveMode: event.Livemode,
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch meta.Type {
	case domainBilling.ProviderPaymentIntentSucceeded, domainBilling.ProviderPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, malformed(meta, err)
		}
		if meta.Type == domainBilling.ProviderPaymentIntentSucceeded {
			return domainBilling.PaymentSucceeded{EventMeta: meta, Payment: paymentFromStripe(&pi)}, nil
		}
		return domainBilling.PaymentFailed{EventMeta: meta, Payment: paymentFromStripe(&pi)}, nil

	case domainBilling.ProviderSubscriptionCreated, domainBilling.ProviderSubscriptionUpdated:
		snap, err := decodeSubscription(raw)
		if err != nil {
			return nil, malformed(meta, err)
		}
		return domainBilling.SubscriptionUpserted{EventMeta: meta, Subscription: snap}, nil

	case domainBilling.ProviderSubscriptionDeleted:
		snap, err := decodeSubscription(raw)
		if err != nil {
			return nil, malformed(meta, err)
		}
		return domainBilling.SubscriptionDeleted{EventMeta: meta, Subscription: snap}, nil

	case domainBilling.ProviderInvoicePaid, domainBilling.ProviderInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, malformed(meta, err)
		}
		return domainBilling.InvoicePaid{EventMeta: meta, Invoice: invoiceFromStripe(&inv)}, nil
	}

	return domainBilling.Ignored{EventMeta: meta}, nil
}

func malformed(meta domainBilling.EventMeta, err error) error {
	return fmt.Errorf("%w: %s %s: %v", domainBilling.ErrMalformedEvent, meta.Type, meta.ID, err)
}

// wireSubscription decodes a subscription without trusting its timestamps.
// current_period_end is kept as the raw token so a malformed value reaches
// reconciliation instead of failing the whole event.
type wireSubscription struct {
	ID                 string            `json:"id"`
	Customer           json.RawMessage   `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart json.RawMessage   `json:"current_period_start"`
	CurrentPeriodEnd   json.RawMessage   `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CancelAt           json.RawMessage   `json:"cancel_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []wireSubscriptionItem `json:"data"`
	} `json:"items"`
}

type wireSubscriptionItem struct {
	ID    string `json:"id"`
	Price *struct {
		ID         string          `json:"id"`
		Product    json.RawMessage `json:"product"`
		UnitAmount int64           `json:"unit_amount"`
		Currency   string          `json:"currency"`
		Recurring  *struct {
			Interval string `json:"interval"`
		} `json:"recurring"`
	} `json:"price"`
}

func decodeSubscription(raw []byte) (domainBilling.SubscriptionSnapshot, error) {
	var ws wireSubscription
	if err := json.Unmarshal(raw, &ws); err != nil {
		return domainBilling.SubscriptionSnapshot{}, err
	}

	snap := domainBilling.SubscriptionSnapshot{
		ID:                 ws.ID,
		CustomerID:         expandableID(ws.Customer),
		Status:             ws.Status,
		CurrentPeriodStart: lenientUnix(ws.CurrentPeriodStart),
		CurrentPeriodEnd:   rawTimestamp(ws.CurrentPeriodEnd),
		CancelAtPeriodEnd:  ws.CancelAtPeriodEnd,
		CancelAt:           lenientUnix(ws.CancelAt),
		Metadata:           ws.Metadata,
	}

	for _, item := range ws.Items.Data {
		si := domainBilling.SubscriptionItem{ID: item.ID}
		if p := item.Price; p != nil {
			si.PriceID = p.ID
			si.UnitAmount = p.UnitAmount
			si.Currency = p.Currency
			si.ProductID = expandableID(p.Product)
			si.ProductName = expandableName(p.Product)
			if p.Recurring != nil {
				si.Interval = p.Recurring.Interval
			}
		}
		snap.Items = append(snap.Items, si)
	}
	return snap, nil
}

// rawTimestamp returns the token text with any string quoting removed
func rawTimestamp(raw json.RawMessage) domainBilling.RawTimestamp {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domainBilling.RawTimestamp(s)
	}
	return domainBilling.RawTimestamp(raw)
}

func lenientUnix(raw json.RawMessage) int64 {
	n, err := strconv.ParseInt(string(rawTimestamp(raw)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// expandableID reads an id from a field that is either "id" or {"id": ...}
func expandableID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func expandableName(raw json.RawMessage) string {
	var obj struct {
		Name string `json:"name"`
	}
	if len(raw) > 0 && raw[0] == '{' {
		_ = json.Unmarshal(raw, &obj)
	}
	return obj.Name
}
