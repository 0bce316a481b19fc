package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DependencyHealth represents the health status of a guarded dependency.
type DependencyHealth struct {
	// Name is the dependency identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful call.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed call.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy returns true if the circuit is closed.
func (h *DependencyHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the circuit is half-open.
func (h *DependencyHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the circuit is open.
func (h *DependencyHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks guards by name for readiness reporting.
type Registry struct {
	mu     sync.RWMutex
	guards map[string]*Guard
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		guards: make(map[string]*Guard),
	}
}

// Register adds a guard, replacing any guard with the same name.
func (r *Registry) Register(g *Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[g.Name()] = g
}

// Unregister removes a guard.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guards, name)
}

// GetHealth returns the health of one dependency, or nil if unknown.
func (r *Registry) GetHealth(name string) *DependencyHealth {
	r.mu.RLock()
	g, ok := r.guards[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return g.Health()
}

// GetAllHealth returns the health of every dependency sorted by name.
func (r *Registry) GetAllHealth() []*DependencyHealth {
	r.mu.RLock()
	guards := make([]*Guard, 0, len(r.guards))
	for _, g := range r.guards {
		guards = append(guards, g)
	}
	r.mu.RUnlock()

	sort.Slice(guards, func(i, j int) bool { return guards[i].Name() < guards[j].Name() })

	health := make([]*DependencyHealth, len(guards))
	for i, g := range guards {
		health[i] = g.Health()
	}
	return health
}

// Count returns the number of registered guards.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.guards)
}
