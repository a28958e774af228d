package strategy

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two runs of the same strategy.
const DefaultCooldown = 60 * time.Second

// Registry holds active strategies keyed by name and tracks per-strategy
// run cooldowns for the scheduler.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	cooldown time.Duration
}

type entry struct {
	strat   Strategy
	lastRun time.Time
}

// NewRegistry creates a registry with the given cooldown (<=0 uses the default).
func NewRegistry(cooldown time.Duration) *Registry {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Registry{
		entries:  make(map[string]*entry),
		cooldown: cooldown,
	}
}

// Register adds a strategy. Re-registering an existing name is an error.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if name == "" {
		return fmt.Errorf("strategy with empty name")
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.entries[name] = &entry{strat: s}
	log.Printf("strategy registered: %s", name)
	return nil
}

// Deregister removes a strategy by name.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.strat, true
}

// Due returns strategies whose cooldown has elapsed as of now.
func (r *Registry) Due(now time.Time) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Strategy
	for _, e := range r.entries {
		if e.lastRun.IsZero() || now.Sub(e.lastRun) >= r.cooldown {
			out = append(out, e.strat)
		}
	}
	return out
}

// MarkRun records that a strategy ran at now, restarting its cooldown.
func (r *Registry) MarkRun(name string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.lastRun = now
	}
}

// Names lists registered strategy names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
