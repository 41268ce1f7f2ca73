package event

import (
	"context"
	"sync"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// Handler consumes sync events
type Handler interface {
	Handle(ctx context.Context, event integration.SyncEvent) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, event integration.SyncEvent) error

// Handle calls f(ctx, event)
func (f HandlerFunc) Handle(ctx context.Context, event integration.SyncEvent) error {
	return f(ctx, event)
}

// namedHandler pairs a handler with the name used in logs
type namedHandler struct {
	name    string
	handler Handler
}

// HandlerRegistry manages event handler registrations
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[integration.SyncEventType][]namedHandler
	wildcard []namedHandler // handlers for all events
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[integration.SyncEventType][]namedHandler),
	}
}

// Register adds a handler for specific event types.
// If no event types are provided, the handler receives all events.
func (r *HandlerRegistry) Register(name string, handler Handler, eventTypes ...integration.SyncEventType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := namedHandler{name: name, handler: handler}
	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, h)
		return
	}
	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], h)
	}
}

// Unregister removes every registration made under name
func (r *HandlerRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, name)
	for eventType, handlers := range r.handlers {
		r.handlers[eventType] = removeHandler(handlers, name)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
}

// handlersFor returns type-specific handlers followed by wildcard handlers
func (r *HandlerRegistry) handlersFor(eventType integration.SyncEventType) []namedHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeHandlers := r.handlers[eventType]
	result := make([]namedHandler, 0, len(typeHandlers)+len(r.wildcard))
	result = append(result, typeHandlers...)
	result = append(result, r.wildcard...)
	return result
}

// Names returns the distinct registered handler names
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	add := func(hs []namedHandler) {
		for _, h := range hs {
			if !seen[h.name] {
				seen[h.name] = true
				names = append(names, h.name)
			}
		}
	}
	add(r.wildcard)
	for _, hs := range r.handlers {
		add(hs)
	}
	return names
}

func removeHandler(handlers []namedHandler, name string) []namedHandler {
	result := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			result = append(result, h)
		}
	}
	return result
}
