package integration

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed webhook deliveries so a redelivery does
// not adjust stock twice
type IdempotencyStore interface {
	// MarkProcessed marks a delivery as processed with a TTL.
	// Returns true if the delivery was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a delivery has already been processed
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)

	// Unmark forgets a delivery so it can be retried after a failed attempt
	Unmark(ctx context.Context, deliveryID string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for webhook de-duplication
type IdempotencyConfig struct {
	// TTL is how long a processed delivery id is remembered.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether duplicate deliveries are detected.
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
