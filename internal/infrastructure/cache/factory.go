package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/infrastructure/config"
)

const memorySweepInterval = 5 * time.Minute

// NewEventStore returns the Redis store when Redis is enabled and reachable,
// otherwise an in-memory store
func NewEventStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory webhook event store")
		return NewMemoryEventStore(memorySweepInterval)
	}

	store, err := NewRedisEventStore(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory webhook event store; "+
			"redeliveries may be applied twice across instances",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.Error(err))
		return NewMemoryEventStore(memorySweepInterval)
	}

	logger.Info("Using Redis webhook event store", zap.String("host", cfg.Host))
	return store
}
