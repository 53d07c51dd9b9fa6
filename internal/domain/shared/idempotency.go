package shared

import (
	"context"
	"time"
)

// DefaultEventRetention covers the provider's redelivery window of three days
const DefaultEventRetention = 72 * time.Hour

// IdempotencyStore remembers which inbound event ids have already been applied
type IdempotencyStore interface {
	// MarkProcessed records eventID for ttl. It reports false when the id was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}
