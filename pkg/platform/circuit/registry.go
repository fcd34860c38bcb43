package circuit

import (
	"sort"
	"sync"
)

// Registry maps service names to shared Breaker instances. It is constructed
// once at wiring time and passed by handle to every call site; there is no
// ambient/global lookup. All callers of the same upstream therefore share one
// breaker and see an outage simultaneously.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	opts     []Option
}

// NewRegistry constructs a registry whose breakers all receive opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		opts:     opts,
	}
}

// Get returns the breaker for the named service, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.opts...)
	r.breakers[name] = b
	return b
}

// Names returns the registered service names in stable order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
