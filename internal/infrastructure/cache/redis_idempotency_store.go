package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// DefaultDeliveryKeyPrefix namespaces webhook delivery ids in Redis
const DefaultDeliveryKeyPrefix = "webhook:delivery:"

// RedisIdempotencyStore shares processed delivery ids across instances
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOptions holds the connection settings for the store
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection with a ping
func NewRedisIdempotencyStore(ctx context.Context, opts RedisOptions) (*RedisIdempotencyStore, error) {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisIdempotencyStoreWithClient(client, opts.KeyPrefix), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultDeliveryKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed sets the delivery key with SETNX so concurrent receivers agree
// on a single winner
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(deliveryID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery %s as processed: %w", deliveryID, err)
	}
	return ok, nil
}

// IsProcessed reports whether the delivery key exists
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(deliveryID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery %s: %w", deliveryID, err)
	}
	return n > 0, nil
}

// Unmark deletes the delivery key
func (s *RedisIdempotencyStore) Unmark(ctx context.Context, deliveryID string) error {
	if err := s.client.Del(ctx, s.key(deliveryID)).Err(); err != nil {
		return fmt.Errorf("failed to unmark delivery %s: %w", deliveryID, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// KeyPrefix returns the namespace applied to delivery ids
func (s *RedisIdempotencyStore) KeyPrefix() string {
	return s.keyPrefix
}

func (s *RedisIdempotencyStore) key(deliveryID string) string {
	return s.keyPrefix + deliveryID
}

var _ integration.IdempotencyStore = (*RedisIdempotencyStore)(nil)
