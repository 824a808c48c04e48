package schema

import (
	"fmt"
	"sync"

	"github.com/danmuck/duplex/internal/protocol"
)

// Registry maps discriminators to type descriptors, one namespace per
// message kind. Registration is not additive: a second descriptor for the
// same (kind, discriminator) pair is rejected loudly rather than silently
// replacing the first.
type Registry struct {
	mu    sync.RWMutex
	types map[registryKey]Type
}

type registryKey struct {
	kind          protocol.Kind
	discriminator string
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[registryKey]Type)}
}

func (r *Registry) Register(kind protocol.Kind, t Type) error {
	key := registryKey{kind: kind, discriminator: t.Discriminator()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[key]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateType, kind, t.Discriminator())
	}
	r.types[key] = t
	return nil
}

// MustRegister registers or panics. Intended for package-level protocol
// tables built at init time, where a duplicate is a programming error.
func (r *Registry) MustRegister(kind protocol.Kind, t Type) {
	if err := r.Register(kind, t); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(kind protocol.Kind, discriminator string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[registryKey{kind: kind, discriminator: discriminator}]
	return t, ok
}

// Discriminators lists registered names for one kind, unordered.
func (r *Registry) Discriminators(kind protocol.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for key := range r.types {
		if key.kind == kind {
			out = append(out, key.discriminator)
		}
	}
	return out
}
