package billing

import (
	"time"

	"github.com/stripe/stripe-go/v81"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
)

func snapshotFromSubscription(sub *stripe.Subscription) *domainBilling.SubscriptionSnapshot {
	snap := &domainBilling.SubscriptionSnapshot{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   domainBilling.TimestampFromUnix(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CancelAt:           sub.CancelAt,
		Metadata:           sub.Metadata,
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	if sub.Items == nil {
		return snap
	}

	for _, item := range sub.Items.Data {
		if item == nil {
			continue
		}
		si := domainBilling.SubscriptionItem{ID: item.ID}
		if p := item.Price; p != nil {
			si.PriceID = p.ID
			si.UnitAmount = p.UnitAmount
			si.Currency = string(p.Currency)
			if p.Product != nil {
				si.ProductID = p.Product.ID
				si.ProductName = p.Product.Name
			}
			if p.Recurring != nil {
				si.Interval = string(p.Recurring.Interval)
			}
		}
		snap.Items = append(snap.Items, si)
	}
	return snap
}

func invoiceFromStripe(inv *stripe.Invoice) domainBilling.Invoice {
	out := domainBilling.Invoice{
		ID:          inv.ID,
		Number:      inv.Number,
		Status:      string(inv.Status),
		AmountDue:   inv.AmountDue,
		AmountPaid:  inv.AmountPaid,
		Currency:    string(inv.Currency),
		HostedURL:   inv.HostedInvoiceURL,
		PDFURL:      inv.InvoicePDF,
		Created:     unixOrZero(inv.Created),
		PeriodStart: unixOrZero(inv.PeriodStart),
		PeriodEnd:   unixOrZero(inv.PeriodEnd),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out
}

func paymentMethodFromStripe(pm *stripe.PaymentMethod) domainBilling.PaymentMethod {
	out := domainBilling.PaymentMethod{ID: pm.ID}
	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		out.Brand = string(pm.Card.Brand)
		out.Last4 = pm.Card.Last4
		out.ExpMonth = pm.Card.ExpMonth
		out.ExpYear = pm.Card.ExpYear
	}
	return out
}

func paymentFromStripe(pi *stripe.PaymentIntent) domainBilling.PaymentSnapshot {
	out := domainBilling.PaymentSnapshot{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Status:   string(pi.Status),
		Metadata: pi.Metadata,
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
