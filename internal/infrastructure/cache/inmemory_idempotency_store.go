package cache

import (
	"context"
	"sync"
	"time"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// defaultSweepInterval is how often expired delivery ids are purged
const defaultSweepInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed delivery ids in a process-local map.
// Suitable for a single instance and for tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiry    map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts the sweeper goroutine
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(defaultSweepInterval, time.Now)
}

func newInMemoryIdempotencyStore(sweep time.Duration, now func() time.Time) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiry:   make(map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweep)
	return s
}

// MarkProcessed records deliveryID for ttl. Returns false when the id is
// already recorded and not yet expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[deliveryID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiry[deliveryID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether deliveryID is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, deliveryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.expiry[deliveryID]
	return ok && s.now().Before(exp), nil
}

// Unmark forgets deliveryID
func (s *InMemoryIdempotencyStore) Unmark(_ context.Context, deliveryID string) error {
	s.mu.Lock()
	delete(s.expiry, deliveryID)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of recorded ids, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiry)
}

func (s *InMemoryIdempotencyStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, id)
		}
	}
}

var _ integration.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
