// Package registry is the boundary between the engine and the host's
// step implementations: capabilities are opaque callables registered
// under string names and invoked with fully resolved arguments.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// StateReader is the read-only view of the run context a capability may
// inspect. Capabilities never write the store directly; the executor
// captures their return value.
type StateReader interface {
	Get(key string) (any, error)
	GetDefault(key string, def any) any
	Contains(key string) bool
	Keys() []string
	ByPrefix(prefix string) map[string]any
}

// Call carries everything a capability receives for one step invocation.
type Call struct {
	// Step is the invoking step's name.
	Step string
	// Args is the step's argument map with all references resolved.
	Args map[string]any
	// State is the read-only run context.
	State StateReader
}

// Capability is a single unit of work a step can invoke. Implementations
// must honor ctx cancellation; a returned error (or panic) becomes that
// step's failure and never unwinds into the scheduler.
type Capability interface {
	Invoke(ctx context.Context, call *Call) (any, error)
}

// Func adapts a plain function to the Capability interface.
type Func func(ctx context.Context, call *Call) (any, error)

// Invoke implements Capability.
func (f Func) Invoke(ctx context.Context, call *Call) (any, error) {
	return f(ctx, call)
}

// Registry maps capability names to implementations for one application
// instance. Registration happens during wiring, before any run starts;
// lookups are read-only afterwards.
type Registry struct {
	caps map[string]Capability
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

// Register adds a capability under a name. Registering the same name
// twice is a programmer error and panics.
func (r *Registry) Register(name string, cap Capability) {
	if _, exists := r.caps[name]; exists {
		panic(fmt.Sprintf("capability %q already registered", name))
	}
	slog.Debug("Registering capability.", "name", name)
	r.caps[name] = cap
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, error) {
	cap, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", name)
	}
	return cap, nil
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module is implemented by capability packages that self-register their
// handlers during application wiring.
type Module interface {
	Register(r *Registry)
}
