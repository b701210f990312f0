// Package health runs the subsystem checks behind /health and
// /health/ready.
package health

import (
	"context"
	"sync"
)

// Status is the outcome of one check. Optional subsystems report here but
// never make the aggregate unhealthy.
type Status struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Checker inspects one subsystem.
type Checker func(ctx context.Context) Status

type entry struct {
	name     string
	check    Checker
	optional bool
}

// Registry holds the checks in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a check whose failure makes the process unhealthy.
func (r *Registry) Register(name string, check Checker) {
	r.add(entry{name: name, check: check})
}

// RegisterOptional adds a check that is reported but not required, e.g.
// a counter store that the storefront can run without.
func (r *Registry) RegisterOptional(name string, check Checker) {
	r.add(entry{name: name, check: check, optional: true})
}

func (r *Registry) add(e entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// CheckAll runs every check concurrently and returns the statuses in
// registration order. healthy is false if any required check failed.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	entries := append([]entry(nil), r.entries...)
	r.mu.RUnlock()

	statuses = make([]Status, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := e.check(ctx)
			if s.Name == "" {
				s.Name = e.name
			}
			s.Optional = e.optional
			statuses[i] = s
		}()
	}
	wg.Wait()

	healthy = true
	for _, s := range statuses {
		if !s.Healthy && !s.Optional {
			healthy = false
		}
	}
	return healthy, statuses
}
