package scoring

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry holds one engine per live match.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

func (r *Registry) Get(matchID string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[matchID]
	if !ok {
		return nil, fmt.Errorf("match %q: %w", matchID, ErrNoEngine)
	}
	return e, nil
}

// GetOrCreate returns the match's engine, calling build at most once per
// match to create it.
func (r *Registry) GetOrCreate(matchID string, build func() (Engine, error)) (Engine, error) {
	r.mu.RLock()
	e, ok := r.engines[matchID]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if e, ok := r.engines[matchID]; ok {
		return e, nil
	}

	e, err := build()
	if err != nil {
		return nil, fmt.Errorf("building engine for match %q: %w", matchID, err)
	}
	r.engines[matchID] = e
	return e, nil
}

func (r *Registry) Remove(matchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.engines[matchID]
	delete(r.engines, matchID)
	return ok
}

// Active lists the match ids with a live engine, sorted.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.engines))
}

func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.engines)
}
