package billing

import (
	"errors"
	"fmt"

	"github.com/blibbers/vibekit/internal/domain/shared"
)

// Sentinel errors
var (
	ErrMissingUserMetadata = errors.New("billing: checkout metadata must carry userId")
	ErrMalformedEvent      = errors.New("billing: malformed webhook event")
	ErrNoBillingCustomer   = shared.NewDomainError("NO_BILLING_CUSTOMER", "No billing customer found for this account")
	ErrNoSubscription      = shared.NewDomainError("NOT_FOUND", "No active subscription found")
)

// SignatureError means an inbound webhook failed signature verification.
// Nothing about the payload can be trusted.
type SignatureError struct {
	Reason string
	Err    error
}

func (e *SignatureError) Error() string {
	if e.Reason == "" {
		return "billing: invalid webhook signature"
	}
	return "billing: invalid webhook signature: " + e.Reason
}

func (e *SignatureError) Unwrap() error { return e.Err }

// GatewayError wraps a failed outbound call to the provider
type GatewayError struct {
	Op         string
	Message    string // provider-reported message, safe to show users
	Code       string
	HTTPStatus int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("billing: %s failed: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("billing: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("billing: %s failed", e.Op)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// UserMessage returns the provider message, or a generic one
func (e *GatewayError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "Payment provider request failed"
}

// UserResolutionWarning means an event referenced no known user.
// The event is acknowledged; retrying cannot fix the lookup.
type UserResolutionWarning struct {
	EventID    string
	CustomerID string
	UserID     string
}

func (w *UserResolutionWarning) Error() string {
	return fmt.Sprintf("billing: no user for event %s (customer=%q, metadata userId=%q)", w.EventID, w.CustomerID, w.UserID)
}

// TimestampValidationWarning means a period-end value was rejected and replaced
type TimestampValidationWarning struct {
	Raw    RawTimestamp
	Reason string
}

func (w *TimestampValidationWarning) Error() string {
	return fmt.Sprintf("billing: invalid period end %q: %s", string(w.Raw), w.Reason)
}
