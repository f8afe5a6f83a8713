package circuitbreaker

import (
	"fmt"
	"sync"
)

// Registry is the process-wide keyed collection of breakers. It is
// constructed once at startup and passed to whatever needs breaker lookup;
// there is no package-level global.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	presets  map[string]Config
	defaults Config
	opts     []Option
}

// NewRegistry creates a registry. Breakers for preset names use their preset
// configuration; unknown names fall back to defaults with the requested name
// stamped in. All configurations are validated here so lazy construction in
// Get can never fail. opts are applied to every breaker the registry creates.
func NewRegistry(defaults Config, presets []Config, opts ...Option) (*Registry, error) {
	check := defaults
	if check.Name == "" {
		check.Name = "default"
	}
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default breaker config: %w", err)
	}

	presetMap := make(map[string]Config, len(presets))
	for _, preset := range presets {
		if err := preset.Validate(); err != nil {
			return nil, fmt.Errorf("invalid breaker config for %q: %w", preset.Name, err)
		}
		presetMap[preset.Name] = preset
	}

	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		presets:  presetMap,
		defaults: defaults,
		opts:     opts,
	}, nil
}

// Get returns the breaker for the named service, constructing it on first
// lookup. Subsequent calls with the same name return the identical instance.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = newBreaker(r.configFor(name), r.opts...)
	r.breakers[name] = cb
	return cb
}

// Lookup returns the breaker for name without creating one.
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, exists := r.breakers[name]
	return cb, exists
}

// All returns a snapshot of the registered breakers keyed by service name.
func (r *Registry) All() map[string]*CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		all[name] = cb
	}
	return all
}

// AllMetrics returns a metrics snapshot of every registered breaker, for
// dashboards and health checks.
func (r *Registry) AllMetrics() map[string]Metrics {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshots := make(map[string]Metrics, len(r.breakers))
	for name, cb := range r.breakers {
		snapshots[name] = cb.Metrics()
	}
	return snapshots
}

// ResetAll resets every breaker's state to the initial CLOSED values.
// Configurations are kept and the breaker instances stay registered.
func (r *Registry) ResetAll() {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		cb.Reset()
	}
}

// HasOpenCircuit reports whether any registered breaker is currently OPEN.
func (r *Registry) HasOpenCircuit() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		if cb.State() == StateOpen {
			return true
		}
	}
	return false
}

func (r *Registry) configFor(name string) Config {
	if cfg, exists := r.presets[name]; exists {
		return cfg
	}

	cfg := r.defaults
	cfg.Name = name
	return cfg
}
