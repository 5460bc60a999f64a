// Package factory lets backend implementations register themselves by name
// so callers (the CLI, tests) can construct one from a name and a parameter
// map, the way the registry's storage driver factory works. This registry
// is infrastructure for choosing a concrete Backend; it is unrelated to -
// and must not be confused with - the extractor plugin lookup described in
// package extractor, which the core takes as an injected function rather
// than a global registry.
package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/metalad-go/metalad/backend"
)

// Constructor builds a backend.Backend from a parameter map. Parameter keys
// and accepted values vary by backend.
type Constructor func(parameters map[string]any) (backend.Backend, error)

var (
	mu           sync.RWMutex
	constructors = map[string]Constructor{}
)

// Register makes a backend constructor available by name. Panics if name is
// already registered or ctor is nil, matching the registry's own
// fail-fast-at-init-time factory behavior.
func Register(name string, ctor Constructor) {
	if ctor == nil {
		panic("factory: nil Constructor for " + name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := constructors[name]; exists {
		panic(fmt.Sprintf("factory: backend %q already registered", name))
	}
	constructors[name] = ctor
}

// Create builds a backend.Backend named name with the given parameters.
func Create(ctx context.Context, name string, parameters map[string]any) (backend.Backend, error) {
	mu.RLock()
	ctor, ok := constructors[name]
	mu.RUnlock()
	if !ok {
		return nil, InvalidBackendError{Name: name}
	}
	return ctor(parameters)
}

// InvalidBackendError records an attempt to construct an unregistered
// backend.
type InvalidBackendError struct {
	Name string
}

func (e InvalidBackendError) Error() string {
	return fmt.Sprintf("backend not registered: %s", e.Name)
}
