package integration

import (
	"context"
	"sync"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// keyLock is a reference counted lock for one stock key
type keyLock struct {
	ch   chan struct{}
	refs int
}

// StockCoordinator serializes every stock mutation of a SKU. Catalog sync,
// stock sync and the order webhook all write through it, so two writers never
// interleave on the same store and SKU. Idle locks are released.
type StockCoordinator struct {
	hub        integration.CommerceHub
	storefront integration.Storefront

	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewStockCoordinator creates a coordinator over both platforms
func NewStockCoordinator(hub integration.CommerceHub, storefront integration.Storefront) *StockCoordinator {
	return &StockCoordinator{
		hub:        hub,
		storefront: storefront,
		locks:      make(map[string]*keyLock),
	}
}

// StockKey identifies a variant across both platforms
func StockKey(storeID, sku string) string {
	return storeID + ":" + sku
}

// WithLock runs fn while holding the lock of key. Waiting honours ctx.
func (c *StockCoordinator) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l := c.acquire(key)
	defer c.release(key, l)

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.ch }()

	return fn(ctx)
}

// SetInventory writes Commerce Hub inventory levels for one SKU. Levels are
// applied in order under a single lock.
func (c *StockCoordinator) SetInventory(ctx context.Context, storeID, sku string, levels ...integration.InventoryLevel) error {
	return c.WithLock(ctx, StockKey(storeID, sku), func(ctx context.Context) error {
		for _, level := range levels {
			if err := c.hub.SetInventoryLevel(ctx, level); err != nil {
				return err
			}
		}
		return nil
	})
}

// AdjustStorefront applies a relative stock change on the Storefront
func (c *StockCoordinator) AdjustStorefront(ctx context.Context, store integration.StoreConfig, adj integration.StockAdjustment) error {
	return c.WithLock(ctx, StockKey(store.ID, adj.VariantID), func(ctx context.Context) error {
		return c.storefront.AdjustStock(ctx, store, adj)
	})
}

// ActiveKeys returns how many keys currently hold or wait for a lock
func (c *StockCoordinator) ActiveKeys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

func (c *StockCoordinator) acquire(key string) *keyLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		c.locks[key] = l
	}
	l.refs++
	return l
}

func (c *StockCoordinator) release(key string, l *keyLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
}
