// Package billing provides the domain model for payment-provider billing.
//
// The provider is the source of truth for subscription state. This package
// describes what the rest of the system sees of it:
//   - Gateway: the outbound port to the provider (customers, checkout, plan changes, refunds)
//   - Event: the closed set of inbound webhook events the system reacts to
//   - Snapshots: provider objects reduced to the fields billing logic reads
//
// Local state (the subscription record on a user, order payment status) is
// owned by the identity and trade domains and is written only from inbound events.
package billing
