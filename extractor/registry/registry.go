// Package registry is an optional, CLI-convenience helper for building an
// extractor.Factory out of a static name->constructor map. The core
// extraction pipeline never depends on this package -- it takes an
// extractor.Factory directly -- so an application is free to source
// extractors some other way. Grounded on datalad-metalad's
// get_extractor_class, which resolves a name against Python entry_points
// and logs when a later entry_point shadows an earlier one of the same
// name; this package reproduces that last-one-wins-with-a-warning
// behavior for statically registered constructors.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/metalad-go/metalad/extractor"
	"github.com/metalad-go/metalad/internal/dcontext"
)

// Constructor builds a bound Extractor instance for the given target
// (a dataset path or a file path, interpreted by the constructor itself).
type Constructor func(target string) (extractor.Extractor, error)

// Registry is a name -> Constructor map, safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register installs ctor under name, overwriting and logging a warning if
// name was already registered (last-one-wins, matching the Python
// original's entry_point shadowing behavior).
func (r *Registry) Register(ctx context.Context, name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[name]; exists {
		dcontext.GetLogger(ctx).Warnf("extractor %q registered more than once, keeping the last registration", name)
	}
	r.constructors[name] = ctor
}

// Factory returns an extractor.Factory bound to target, resolving names
// against this registry.
func (r *Registry) Factory(target string) extractor.Factory {
	return func(name string) (extractor.Extractor, error) {
		r.mu.RLock()
		ctor, ok := r.constructors[name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("no extractor registered under name %q", name)
		}
		return ctor(target)
	}
}
