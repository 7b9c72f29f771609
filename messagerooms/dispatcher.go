package messagerooms

import (
	"fmt"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// Dispatcher routes inbound events to the handler registered for their
// type. Dispatch is meant to be called from a single goroutine; each event
// is fully handled before the next one is taken.
type Dispatcher struct {
	registry *Registry
	store    *store.Store
	logger   Logger
	onError  func(error)
}

// NewDispatcher builds a dispatcher applying events from r to st.
func NewDispatcher(r *Registry, st *store.Store) *Dispatcher {
	if r == nil {
		r = DefaultRegistry()
	}
	return &Dispatcher{registry: r, store: st, logger: noopLogger{}}
}

func (d *Dispatcher) SetLogger(l Logger) {
	if l != nil {
		d.logger = l
	}
}

func (d *Dispatcher) SetOnError(fn func(error)) { d.onError = fn }

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch hands ev to its handler and reports whether one was registered.
// Handler errors and panics are logged and passed to the error callback;
// they never reach the caller.
func (d *Dispatcher) Dispatch(ev Event) bool {
	h, ok := d.registry.Lookup(ev.Type)
	if !ok {
		d.logger.Debug("no handler for event", map[string]any{"event": ev.Type})
		return false
	}

	if err := d.invoke(h, ev); err != nil {
		d.logger.Warn("event dropped", map[string]any{"event": ev.Type, "error": err.Error()})
		d.fireError(err)
		return true
	}
	d.logger.Debug("event handled", map[string]any{"event": ev.Type, "bytes": len(ev.Data)})
	return true
}

func (d *Dispatcher) invoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ClientError{
				Code:      ErrorHandlerFailed,
				Message:   fmt.Sprintf("handler panicked: %v", r),
				EventType: ev.Type,
			}
		}
	}()
	return h.Handle(ev, d.store)
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
