package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/infrastructure/config"
)

// IdempotencyStoreFactory picks a delivery store based on configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: !cfg.Required,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to the configured Redis
func (f *IdempotencyStoreFactory) CreateRedisStore(ctx context.Context) (*RedisIdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(ctx, RedisOptions{
		Addr:        net.JoinHostPort(f.redisConfig.Host, strconv.Itoa(f.redisConfig.Port)),
		Password:    f.redisConfig.Password,
		DB:          f.redisConfig.DB,
		KeyPrefix:   f.redisConfig.KeyPrefix,
		DialTimeout: f.redisConfig.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}
	return store, nil
}

// CreateStore returns the in-memory store when Redis is disabled, otherwise
// tries Redis and falls back to memory if allowed
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (integration.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory delivery store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("Using Redis delivery store",
			zap.String("host", f.redisConfig.Host),
			zap.String("key_prefix", store.KeyPrefix()),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for webhook de-duplication but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory delivery store. "+
		"Duplicate webhook deliveries are only detected per instance.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
