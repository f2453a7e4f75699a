package pipeline

import (
	"context"
	"fmt"
	"sync"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/value"
)

// Transform mutates one row into another. Implementations must be pure:
// no I/O, no shared mutable state, same output for the same input. The
// runner hands each transform a private deep copy of the row, so returning
// the input mutated in place is also acceptable.
type Transform interface {
	Apply(ctx context.Context, row value.Object) (value.Object, error)
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(ctx context.Context, row value.Object) (value.Object, error)

// Apply implements Transform.
func (f TransformFunc) Apply(ctx context.Context, row value.Object) (value.Object, error) {
	return f(ctx, row)
}

// Resolver resolves a spec's transform reference into an executable
// Transform. The Registry is the standard resolver; the engine layers an
// inline-script resolver on top of it.
type Resolver interface {
	ResolveTransform(ref string) (Transform, error)
}

// Registry maps transform names to implementations.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewRegistry creates an empty transform registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]Transform),
	}
}

// Register adds a named transform, replacing any previous registration.
func (r *Registry) Register(name string, t Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[name] = t
}

// RegisterFunc adds a named transform function.
func (r *Registry) RegisterFunc(name string, f TransformFunc) {
	r.Register(name, f)
}

// ResolveTransform implements Resolver. An unknown name is a configuration
// error, not a missing row.
func (r *Registry) ResolveTransform(ref string) (Transform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transforms[ref]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transform %q", beema.ErrInvalidSpec, ref)
	}
	return t, nil
}

// Names returns all registered transform names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	return names
}
