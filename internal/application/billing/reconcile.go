package billing

import (
	"strconv"
	"strings"
	"time"

	domainBilling "github.com/blibbers/vibekit/internal/domain/billing"
	"github.com/blibbers/vibekit/internal/domain/identity"
)

// periodEndHorizon bounds how far ahead a period end may plausibly lie
const periodEndHorizon = 10

// ParsePeriodEnd converts a raw epoch-seconds period end to a time.
// It returns *TimestampValidationWarning when the value is not a positive
// integer, is not after now, or lies more than ten years after now.
func ParsePeriodEnd(raw domainBilling.RawTimestamp, now time.Time) (time.Time, error) {
	reject := func(reason string) (time.Time, error) {
		return time.Time{}, &domainBilling.TimestampValidationWarning{Raw: raw, Reason: reason}
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return reject("missing")
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return reject("not an integer")
	}
	if sec <= 0 {
		return reject("not positive")
	}

	end := time.Unix(sec, 0).UTC()
	if !end.After(now) {
		return reject("not in the future")
	}
	if end.After(now.AddDate(periodEndHorizon, 0, 0)) {
		return reject("more than 10 years ahead")
	}
	return end, nil
}

// PeriodEndOrFallback returns the parsed period end, or one calendar month
// from now when the raw value is rejected. The fallback does not depend on
// the plan interval.
func PeriodEndOrFallback(raw domainBilling.RawTimestamp, now time.Time) (time.Time, *domainBilling.TimestampValidationWarning) {
	end, err := ParsePeriodEnd(raw, now)
	if err == nil {
		return end, nil
	}
	warning, _ := err.(*domainBilling.TimestampValidationWarning)
	return now.AddDate(0, 1, 0).UTC(), warning
}

// Reconcile derives the complete local subscription record from a provider snapshot
func Reconcile(snap domainBilling.SubscriptionSnapshot, now time.Time) (identity.Subscription, *domainBilling.TimestampValidationWarning) {
	periodEnd, warning := PeriodEndOrFallback(snap.CurrentPeriodEnd, now)
	return identity.Subscription{
		ID:               snap.ID,
		Status:           identity.SubscriptionStatus(snap.Status),
		CurrentPeriodEnd: periodEnd,
		Plan:             snap.FirstPriceID(),
	}, warning
}
