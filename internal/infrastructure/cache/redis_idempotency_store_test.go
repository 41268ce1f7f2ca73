package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/config"
)

// unreachableAddr points at a port nothing listens on
const unreachableAddr = "127.0.0.1:1"

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        unreachableAddr,
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisIdempotencyStore_DefaultPrefix(t *testing.T) {
	store := NewRedisIdempotencyStoreWithClient(unreachableClient(), "")
	defer store.Close()

	assert.Equal(t, DefaultDeliveryKeyPrefix, store.KeyPrefix())
	assert.Equal(t, "webhook:delivery:abc", store.key("abc"))

	custom := NewRedisIdempotencyStoreWithClient(unreachableClient(), "test:")
	defer custom.Close()
	assert.Equal(t, "test:abc", custom.key("abc"))
}

func TestRedisIdempotencyStore_ErrorsAreWrapped(t *testing.T) {
	store := NewRedisIdempotencyStoreWithClient(unreachableClient(), "")
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "d-1", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to mark delivery d-1")

	_, err = store.IsProcessed(ctx, "d-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check delivery d-1")

	err = store.Unmark(ctx, "d-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmark delivery d-1")
}

func TestNewRedisIdempotencyStore_PingFails(t *testing.T) {
	_, err := NewRedisIdempotencyStore(context.Background(), RedisOptions{
		Addr:        unreachableAddr,
		DialTimeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	unreachable := config.RedisConfig{
		Enabled:     true,
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 50 * time.Millisecond,
	}

	t.Run("disabled redis uses memory", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false})
		store, err := f.CreateStore(context.Background())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("falls back with warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		f := NewIdempotencyStoreFactory(unreachable, WithLogger(zap.New(core)))
		store, err := f.CreateStore(context.Background())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("required redis fails", func(t *testing.T) {
		cfg := unreachable
		cfg.Required = true
		f := NewIdempotencyStoreFactory(cfg)
		_, err := f.CreateStore(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unavailable")
	})

	t.Run("option overrides required", func(t *testing.T) {
		cfg := unreachable
		cfg.Required = true
		f := NewIdempotencyStoreFactory(cfg, WithInMemoryFallback(true))
		store, err := f.CreateStore(context.Background())
		require.NoError(t, err)
		defer store.Close()
	})
}
