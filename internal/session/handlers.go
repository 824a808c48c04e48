package session

import (
	"fmt"
	"sync"

	"github.com/danmuck/duplex/internal/protocol/value"
)

// requestEntry handles one inbound request discriminator: decode the body,
// invoke the user handler, encode the reply body. A non-nil error at any of
// those steps becomes an error response on the wire.
type requestEntry struct {
	handle func(body value.Value) (respBody value.Value, resp any, err error)
}

// eventEntry handles one inbound event discriminator. Decode failures are
// returned for local error reporting; events generate no reply either way.
type eventEntry struct {
	handle func(body value.Value) error
}

// sentObserver is invoked after a request handler's reply has been written,
// with the typed response (nil on error) and the handler's error.
type sentObserver func(resp any, err error)

// handlerRegistry maps discriminators to handlers, one namespace per
// message kind. At most one handler per (kind, discriminator); registration
// is rejected rather than silently replaced.
type handlerRegistry struct {
	mu       sync.RWMutex
	requests map[string]*requestEntry
	events   map[string]*eventEntry
	sent     map[string]sentObserver
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		requests: make(map[string]*requestEntry),
		events:   make(map[string]*eventEntry),
		sent:     make(map[string]sentObserver),
	}
}

func (r *handlerRegistry) registerRequest(discriminator string, e *requestEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[discriminator]; exists {
		return fmt.Errorf("%w: request %q", ErrHandlerRegistered, discriminator)
	}
	r.requests[discriminator] = e
	return nil
}

func (r *handlerRegistry) registerEvent(discriminator string, e *eventEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[discriminator]; exists {
		return fmt.Errorf("%w: event %q", ErrHandlerRegistered, discriminator)
	}
	r.events[discriminator] = e
	return nil
}

func (r *handlerRegistry) registerSent(discriminator string, fn sentObserver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sent[discriminator]; exists {
		return fmt.Errorf("%w: sent observer %q", ErrHandlerRegistered, discriminator)
	}
	r.sent[discriminator] = fn
	return nil
}

func (r *handlerRegistry) lookupRequest(discriminator string) (*requestEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.requests[discriminator]
	return e, ok
}

func (r *handlerRegistry) lookupEvent(discriminator string) (*eventEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[discriminator]
	return e, ok
}

func (r *handlerRegistry) lookupSent(discriminator string) (sentObserver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.sent[discriminator]
	return fn, ok
}
