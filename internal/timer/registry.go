package timer

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

type RegistryOption func(*Registry)

func WithRegistryClock(c Clock) RegistryOption {
	return func(r *Registry) { r.cfg.clock = c }
}

func WithTickInterval(d time.Duration) RegistryOption {
	return func(r *Registry) { r.cfg.tickInterval = d }
}

func WithAutoResetDelay(d time.Duration) RegistryOption {
	return func(r *Registry) { r.cfg.autoResetDelay = d }
}

// OnCreate registers a hook called once for every new manager, after it is
// stored. The hook must not call back into the registry synchronously.
func OnCreate(fn func(*Manager)) RegistryOption {
	return func(r *Registry) { r.onCreate = fn }
}

// Registry is the only place managers are created. It holds at most one
// manager per match.
type Registry struct {
	cfg      managerConfig
	onCreate func(*Manager)

	mu       sync.RWMutex
	managers map[string]*Manager
}

func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		cfg: managerConfig{
			clock:          systemClock{},
			tickInterval:   DefaultTickInterval,
			autoResetDelay: DefaultAutoResetDelay,
			logger:         logger,
		},
		managers: make(map[string]*Manager),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the match's manager, creating it from the sport profile with
// periodCount regular periods when absent. A periodCount of zero keeps the
// sport default.
func (r *Registry) Get(matchID string, sport match.Sport, periodCount int) (*Manager, error) {
	return r.GetWithSettings(matchID, sport, Settings{PeriodCount: periodCount})
}

// GetWithSettings is Get with per-match durations. Settings only apply when
// the manager is created.
func (r *Registry) GetWithSettings(matchID string, sport match.Sport, s Settings) (*Manager, error) {
	r.mu.RLock()
	m, ok := r.managers[matchID]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	profile, err := ProfileFor(sport)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Double-check after acquiring write lock.
	if m, ok := r.managers[matchID]; ok {
		r.mu.Unlock()
		return m, nil
	}
	m = newManager(matchID, sport, profile.with(s), r.cfg)
	r.managers[matchID] = m
	r.mu.Unlock()

	r.cfg.logger.Info("timer manager created", "match_id", matchID, "sport", sport)
	if r.onCreate != nil {
		r.onCreate(m)
	}
	return m, nil
}

// Lookup returns an existing manager without creating one.
func (r *Registry) Lookup(matchID string) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[matchID]
	if !ok {
		return nil, fmt.Errorf("match %q: %w", matchID, ErrNoManager)
	}
	return m, nil
}

// Remove destroys and evicts the match's manager.
func (r *Registry) Remove(matchID string) bool {
	r.mu.Lock()
	m, ok := r.managers[matchID]
	delete(r.managers, matchID)
	r.mu.Unlock()
	if !ok {
		return false
	}
	m.Destroy()
	r.cfg.logger.Info("timer manager removed", "match_id", matchID)
	return true
}

func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.managers))
}

func (r *Registry) ClearAll() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()
	for _, m := range managers {
		m.Destroy()
	}
}
