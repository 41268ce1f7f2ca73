package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// InMemoryEventBus fans sync events out to registered handlers in-process.
// Handler failures are logged and never reach the publishing sync loop.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	published atomic.Int64
	failed    atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("events"),
	}
}

// Publish dispatches the event to every matching handler synchronously
func (b *InMemoryEventBus) Publish(ctx context.Context, event integration.SyncEvent) error {
	b.published.Add(1)
	for _, h := range b.registry.handlersFor(event.Type) {
		if err := b.dispatchToHandler(ctx, h, event); err != nil {
			b.failed.Add(1)
			b.logger.Error("handler failed to process event",
				zap.String("handler", h.name),
				zap.String("event_type", string(event.Type)),
				zap.String("key", event.Key()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Subscribe registers a handler under name for the given event types (all when empty)
func (b *InMemoryEventBus) Subscribe(name string, handler Handler, eventTypes ...integration.SyncEventType) {
	b.registry.Register(name, handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.String("handler", name))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(name string) {
	b.registry.Unregister(name)
	b.logger.Debug("handler unsubscribed", zap.String("handler", name))
}

// Handlers returns the subscribed handler names
func (b *InMemoryEventBus) Handlers() []string {
	return b.registry.Names()
}

// Stats returns the number of published events and failed handler calls
func (b *InMemoryEventBus) Stats() (published, failed int64) {
	return b.published.Load(), b.failed.Load()
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, h namedHandler, event integration.SyncEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.name, r)
		}
	}()
	return h.handler.Handle(ctx, event)
}

// LogHandler writes every event to the log
func LogHandler(logger *zap.Logger) Handler {
	return HandlerFunc(func(_ context.Context, event integration.SyncEvent) error {
		logger.Debug("Sync event",
			zap.String("event_type", string(event.Type)),
			zap.String("run_id", event.RunID),
			zap.String("store_id", event.StoreID),
			zap.String("handle", event.Handle),
			zap.String("sku", event.SKU),
			zap.String("outcome", event.Outcome),
		)
		return nil
	})
}

var _ integration.SyncEventPublisher = (*InMemoryEventBus)(nil)
