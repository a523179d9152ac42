package usecases

import (
	"sort"
	"sync"

	"github.com/emberline/faregate/internal/core/domain"
)

// SystemRegistry holds the configured transit systems. Systems are loaded
// once at startup; a reload replaces the whole set.
type SystemRegistry struct {
	mu      sync.RWMutex
	systems map[string]*domain.TransitSystem
}

// NewSystemRegistry creates a registry over the given systems.
func NewSystemRegistry(systems []*domain.TransitSystem) *SystemRegistry {
	r := &SystemRegistry{systems: make(map[string]*domain.TransitSystem, len(systems))}
	for _, s := range systems {
		r.systems[s.ID] = s
	}
	return r
}

// Get returns the system by id.
func (r *SystemRegistry) Get(id string) (*domain.TransitSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.systems[id]
	if !ok {
		return nil, ErrUnknownSystem
	}
	return s, nil
}

// List returns all systems sorted by id.
func (r *SystemRegistry) List() []*domain.TransitSystem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.TransitSystem, 0, len(r.systems))
	for _, s := range r.systems {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace swaps in a freshly loaded system set.
func (r *SystemRegistry) Replace(systems []*domain.TransitSystem) {
	next := make(map[string]*domain.TransitSystem, len(systems))
	for _, s := range systems {
		next[s.ID] = s
	}
	r.mu.Lock()
	r.systems = next
	r.mu.Unlock()
}
