// Package containment implements the version-containment probe (spec.md
// §4.G): given a sub-collection's version at a known path beneath a
// parent realm, find the parent (root) version whose tree references it.
package containment

import "context"

// Prober answers "which root version, if any, contains subVersion at
// subPath beneath parentRealmPath". A false second return means some
// VCS-marked ancestor on the walk toward the realm root has no commit
// referencing the version tracked at that step; the walk stops there
// (spec.md §4.G: "empty if any step returns empty") -- this is the
// signal aggregate.go's detached-metadata handling acts on.
type Prober interface {
	FindRootVersion(ctx context.Context, parentRealmPath, subPath, subVersion string) (rootVersion string, found bool, err error)
}
