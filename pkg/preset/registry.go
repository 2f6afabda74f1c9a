package preset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/ratelimit"
)

// ErrUnknownPreset is returned for names that were never registered
var ErrUnknownPreset = errors.New("unknown preset")

// Factory builds a preset bound to a fetcher and a limiter
type Factory func(f dispatch.Fetcher, l *ratelimit.Limiter) *Preset

// Registry maps preset names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry with every built-in site
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, endpoints := range builtins {
		r.Register(name, newFactory(name, endpoints))
	}
	return r
}

// Register adds a factory, replacing any previous one with the same name
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory registered under name
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return f, nil
}

// Open looks up name and builds the preset over f. A nil limiter means the
// process-wide one.
func (r *Registry) Open(name string, f dispatch.Fetcher, l *ratelimit.Limiter) (*Preset, error) {
	factory, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = ratelimit.Shared()
	}
	return factory(f, l), nil
}

// Names returns the registered preset names in order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
