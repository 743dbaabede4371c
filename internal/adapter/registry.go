package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps platform tags to adapters. Build it at startup, Freeze it,
// and share it read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	frozen   bool
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a.Platform(), a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(platform string, a Adapter) error {
	if platform == "" || a == nil {
		return fmt.Errorf("register adapter: platform and adapter are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("register adapter: %s already registered", platform)
	}
	r.adapters[platform] = a
	return nil
}

func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	return a, ok
}

func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
