package circuitbreaker

import "sync"

// Registry maps service names to breaker instances, guaranteeing at most
// one breaker per name. Breakers created on first use inherit the registry
// defaults and options unless a per-service config is supplied.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
	opts     []Option
}

// NewRegistry creates a registry. The defaults' ServiceName is ignored;
// each breaker is named after its registry key.
func NewRegistry(defaults Config, opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
		opts:     opts,
	}
}

// GetOrCreate returns the breaker for service, creating it on first use.
// A nil cfg means the registry defaults apply.
func (r *Registry) GetOrCreate(service string, cfg *Config) (*Breaker, error) {
	r.mutex.RLock()
	cb, exists := r.breakers[service]
	r.mutex.RUnlock()

	if exists {
		return cb, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[service]; exists {
		return cb, nil
	}

	breakerCfg := r.defaults
	if cfg != nil {
		breakerCfg = *cfg
	}
	breakerCfg.ServiceName = service

	cb, err := New(breakerCfg, r.opts...)
	if err != nil {
		return nil, err
	}

	r.breakers[service] = cb
	return cb, nil
}

// Get returns the breaker for service if it exists.
func (r *Registry) Get(service string) (*Breaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	cb, exists := r.breakers[service]
	return cb, exists
}

// Remove deletes the breaker for service. Callers must not keep using a
// removed breaker.
func (r *Registry) Remove(service string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.breakers, service)
}

// Clear removes every breaker.
func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*Breaker)
}

// Statuses returns a snapshot of every registered breaker, keyed by
// service name.
func (r *Registry) Statuses() map[string]Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	statuses := make(map[string]Status, len(r.breakers))
	for service, cb := range r.breakers {
		statuses[service] = cb.Status()
	}
	return statuses
}
