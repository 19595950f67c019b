package message

import (
	"fmt"
	"sync"
)

// HandlerFunc acts on one decoded envelope.
type HandlerFunc func(Envelope)

// Dispatcher routes envelopes to handlers by api tag.
//
// Registration may happen from any goroutine; Dispatch is meant to run on the
// consumer's tick, never on the arrival path.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	fallback HandlerFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for api, replacing any previous handler.
func (d *Dispatcher) Handle(api string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[api] = fn
}

// HandleDefault registers fn for envelopes with no specific handler.
func (d *Dispatcher) HandleDefault(fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = fn
}

// Handles reports whether Dispatch would find a handler for api.
func (d *Dispatcher) Handles(api string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[api]
	return ok || d.fallback != nil
}

// Dispatch runs the handler registered for env.API.
func (d *Dispatcher) Dispatch(env Envelope) error {
	d.mu.RLock()
	fn, ok := d.handlers[env.API]
	if !ok {
		fn = d.fallback
	}
	d.mu.RUnlock()

	if fn == nil {
		return fmt.Errorf("%w: %q", ErrUnknownAPI, env.API)
	}
	fn(env)
	return nil
}
