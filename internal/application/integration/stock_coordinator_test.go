package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockCoordinator_SerializesSameKey(t *testing.T) {
	c := NewStockCoordinator(nil, nil)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLock(context.Background(), StockKey("123456", "7001"), func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, c.ActiveKeys(), "idle locks are released")
}

func TestStockCoordinator_DifferentKeysRunConcurrently(t *testing.T) {
	c := NewStockCoordinator(nil, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithLock(context.Background(), StockKey("1", "a"), func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = c.WithLock(context.Background(), StockKey("1", "b"), func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key was blocked")
	}
	assert.Equal(t, 1, c.ActiveKeys())
	close(release)
}

func TestStockCoordinator_WaitHonoursContext(t *testing.T) {
	c := NewStockCoordinator(nil, nil)
	key := StockKey("1", "a")

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = c.WithLock(context.Background(), key, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := c.WithLock(ctx, key, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)
	assert.Eventually(t, func() bool { return c.ActiveKeys() == 0 }, time.Second, 5*time.Millisecond)
}
