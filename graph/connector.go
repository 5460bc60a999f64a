package graph

import (
	"context"

	"github.com/metalad-go/metalad/backend"
)

// Node is implemented by every graph entity that is persisted through a
// backend.Backend.
type Node interface {
	SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error)
	LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error
}

// Connector is a lazy-load wrapper around a sub-node: tagged-variant
// {Unloaded(id) | Loaded(node) | Both(id, node)} from design note §9,
// represented here as two booleans rather than a Go tagged union, which
// would need a type switch at every call site for no benefit.
type Connector[T Node] struct {
	newFn func() T

	id      backend.BlobID
	hasID   bool
	node    T
	hasNode bool
}

// NewConnector wraps a freshly created, not-yet-persisted node: the
// "Loaded" state.
func NewConnector[T Node](node T) *Connector[T] {
	return &Connector[T]{node: node, hasNode: true}
}

// NewUnloadedConnector wraps a reference to a node that has not been
// brought into memory yet: the "Unloaded" state. newFn must return a fresh
// zero-value T suitable for LoadFrom.
func NewUnloadedConnector[T Node](id backend.BlobID, newFn func() T) *Connector[T] {
	return &Connector[T]{id: id, hasID: true, newFn: newFn}
}

// Get resolves the connector to its in-memory node, loading it through b if
// necessary. The result is cached; repeated calls are cheap.
func (c *Connector[T]) Get(ctx context.Context, b backend.Backend) (T, error) {
	if c.hasNode {
		return c.node, nil
	}
	node := c.newFn()
	if err := node.LoadFrom(ctx, b, c.id); err != nil {
		var zero T
		return zero, err
	}
	c.node = node
	c.hasNode = true
	return c.node, nil
}

// Save persists the currently loaded node (if any) through b and records
// its id, without evicting the in-memory copy -- the "Both" state. Safe to
// call repeatedly; callers that only hold an id (never loaded) get that id
// back unchanged.
func (c *Connector[T]) Save(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	if c.hasNode {
		id, err := c.node.SaveTo(ctx, b)
		if err != nil {
			return "", err
		}
		c.id = id
		c.hasID = true
		return id, nil
	}
	return c.id, nil
}

// Unget writes the loaded node back via Save and drops the in-memory copy,
// retaining only its id (the "Unloaded" state). Safe to call repeatedly.
func (c *Connector[T]) Unget(ctx context.Context, b backend.Backend) error {
	if !c.hasNode {
		return nil
	}
	if _, err := c.Save(ctx, b); err != nil {
		return err
	}
	var zero T
	c.node = zero
	c.hasNode = false
	return nil
}

// HasID reports whether the connector has ever been saved (and so has a
// stable BlobID), regardless of whether it is currently also loaded.
func (c *Connector[T]) HasID() bool {
	return c.hasID
}

// ID returns the connector's last-saved id. Only meaningful if HasID is
// true.
func (c *Connector[T]) ID() backend.BlobID {
	return c.id
}

// IsLoaded reports whether the node is currently materialized in memory.
func (c *Connector[T]) IsLoaded() bool {
	return c.hasNode
}
