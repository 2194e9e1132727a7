// Package health runs named subsystem probes for readiness reporting.
package health

import (
	"context"
	"sync"
)

// Status is the result of one subsystem probe.
type Status struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes a subsystem. It should respect ctx deadlines.
type Checker func(ctx context.Context) Status

// Registry holds named checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds or replaces the checker for name.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers[name] = check
	r.mu.Unlock()
}

// CheckAll runs every registered checker and returns the per-subsystem
// results. ok is true only when every subsystem is healthy.
func (r *Registry) CheckAll(ctx context.Context) (ok bool, results map[string]Status) {
	r.mu.RLock()
	checkers := make(map[string]Checker, len(r.checkers))
	for name, check := range r.checkers {
		checkers[name] = check
	}
	r.mu.RUnlock()

	ok = true
	results = make(map[string]Status, len(checkers))
	for name, check := range checkers {
		st := check(ctx)
		results[name] = st
		if !st.Healthy {
			ok = false
		}
	}
	return ok, results
}
