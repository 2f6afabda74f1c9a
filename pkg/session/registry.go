package session

import (
	"sort"
	"sync"

	"egress-dispatcher/pkg/dispatch"
)

// Registry hands out named sticky sessions over one fetcher.
// Sessions live until closed; nothing expires locally.
type Registry struct {
	fetcher dispatch.Fetcher

	mu       sync.Mutex
	sessions map[string]*Sticky
}

func NewRegistry(f dispatch.Fetcher) *Registry {
	return &Registry{
		fetcher:  f,
		sessions: make(map[string]*Sticky),
	}
}

// Open returns the session registered under name, creating it on first use.
// country and city only apply when the session is created.
func (r *Registry) Open(name, country, city string) *Sticky {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[name]; ok {
		return s
	}
	s := New(r.fetcher, country, city)
	r.sessions[name] = s
	return s
}

// Get returns the session registered under name
func (r *Registry) Get(name string) (*Sticky, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Close forgets the session. The next Open gets a new identity.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

// List returns the registered names in order
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
