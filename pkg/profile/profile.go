// Package profile decides when screen evaluation is profiled and records the
// results to an append-only log.
package profile

import (
	"strings"
	"sync"

	"github.com/go-drift/screens/pkg/config"
)

// Policy controls when a screen is profiled and what is recorded.
type Policy struct {
	// Predict profiles evaluation during prediction.
	Predict bool
	// Show profiles the first evaluation after the screen is shown.
	Show bool
	// Update profiles steady-state updates.
	Update bool
	// Request profiles when a one-shot profile has been requested.
	Request bool

	// Time records how long evaluation took.
	Time bool
	// Debug records verbose evaluation details.
	Debug bool
	// Const reports constant and non-constant names once per run.
	Const bool
}

// PolicyFromConfig converts the yaml form of a policy.
func PolicyFromConfig(pc config.ProfileConfig) Policy {
	return Policy{
		Predict: pc.Predict,
		Show:    pc.Show,
		Update:  pc.Update,
		Request: pc.Request,
		Time:    pc.Time,
		Debug:   pc.Debug,
		Const:   pc.Const,
	}
}

// Key normalizes a screen name to the registry key (tokens joined by one space).
func Key(name []string) string {
	return strings.Join(name, " ")
}

// ParseName splits a space-separated screen name into tokens.
func ParseName(name string) []string {
	return strings.Fields(name)
}

// Registry maps screen names to profiling policies.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// NewRegistryFromConfig creates a registry seeded from cfg.Profiles.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	r := NewRegistry()
	if cfg == nil {
		return r
	}
	for name, pc := range cfg.Profiles {
		r.Register(name, PolicyFromConfig(pc))
	}
	return r
}

// Register sets the policy for the screen named name.
func (r *Registry) Register(name string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[Key(ParseName(name))] = p
}

// Get returns the policy for name, or the all-false policy if none is registered.
func (r *Registry) Get(name []string) Policy {
	p, _ := r.Lookup(name)
	return p
}

// Lookup is like Get but also reports whether a policy was registered.
func (r *Registry) Lookup(name []string) (Policy, bool) {
	if r == nil {
		return Policy{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[Key(name)]
	return p, ok
}
