package messagerooms

import (
	"sync"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// Handler applies one kind of event to the store.
type Handler interface {
	EventType() string
	Handle(ev Event, st *store.Store) error
}

// HandlerFunc adapts a function to a Handler for a fixed event type.
type HandlerFunc func(ev Event, st *store.Store) error

type funcHandler struct {
	eventType string
	fn        HandlerFunc
}

func (h funcHandler) EventType() string                      { return h.eventType }
func (h funcHandler) Handle(ev Event, st *store.Store) error { return h.fn(ev, st) }

// NewHandler returns a Handler that runs fn for events of eventType.
func NewHandler(eventType string, fn HandlerFunc) Handler {
	return funcHandler{eventType: eventType, fn: fn}
}

// Registry maps event types to their handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

// NewRegistry returns a registry holding handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// DefaultRegistry returns a registry with the connection, heartbeat and
// message handlers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ConnectionHandler{},
		HeartbeatHandler{},
		MessageHandler{},
	)
}

// Register adds h, replacing any handler already bound to its event type.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := h.EventType()
	if _, exists := r.handlers[t]; !exists {
		r.order = append(r.order, t)
	}
	r.handlers[t] = h
}

// Lookup returns the handler for eventType.
func (r *Registry) Lookup(eventType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[eventType]
	return h, ok
}

// Types lists the registered event types in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
