package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/infrastructure/config"
)

const defaultEventKeyPrefix = "vibekit:webhook:event:"

// RedisEventStore records processed webhook event ids in Redis so that
// every instance behind the load balancer sees the same history
type RedisEventStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ shared.IdempotencyStore = (*RedisEventStore)(nil)

// NewRedisEventStore connects to Redis and verifies the connection
func NewRedisEventStore(ctx context.Context, cfg config.RedisConfig) (*RedisEventStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisEventStoreWithClient(client, ""), nil
}

// NewRedisEventStoreWithClient wraps an existing client
func NewRedisEventStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisEventStore {
	if keyPrefix == "" {
		keyPrefix = defaultEventKeyPrefix
	}
	return &RedisEventStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed records the event with SETNX; false means it was already recorded
func (s *RedisEventStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+eventID, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s as processed: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed reports whether the event was recorded and has not expired
func (s *RedisEventStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (s *RedisEventStore) Close() error {
	return s.client.Close()
}
