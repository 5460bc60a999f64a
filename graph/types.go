// Package graph implements the metadata object graph: dataset-version
// lists, UUID-indexed version histories, dataset trees, file trees, and
// per-path metadata records, together with the invariants binding them
// (spec.md §3).
package graph

import (
	"strings"

	"github.com/google/uuid"

	"github.com/metalad-go/metalad/backend"
)

// UUID is a dataset's 128-bit identity, produced and owned by the dataset
// itself -- this package only parses and carries it.
type UUID string

// ParseUUID validates s as a UUID string.
func ParseUUID(s string) (UUID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return UUID(s), nil
}

// NewUUID generates a fresh random UUID, for tests and synthesized root
// versions.
func NewUUID() UUID {
	return UUID(uuid.NewString())
}

// Version is an opaque content-version string, interpretable by the backing
// store (e.g. a git commit hash). The graph model never inspects it beyond
// equality.
type Version string

// RealmID names a storage location; re-exported from backend so callers
// don't need to import both packages for one concept.
type RealmID = backend.RealmID

// Timestamp is a monotonic string of seconds since epoch. The graph model
// never calls time.Now itself; callers pass Timestamps in.
type Timestamp string

// Path is a POSIX-style, slash-separated path with no leading slash. The
// empty string denotes the root.
type Path string

// NormalizePath strips any leading and trailing slashes, per invariant 3
// ("no trailing slash; empty string means root").
func NormalizePath(p string) Path {
	return Path(strings.Trim(p, "/"))
}

// JoinPath joins two realm-relative paths, inserting "/" only when both
// sides are non-empty, collapsing empty components (invariant 5, §4.F).
func JoinPath(a, b Path) Path {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return Path(string(a) + "/" + string(b))
	}
}

// HasPrefix reports whether p is prefix itself, or lies within the subtree
// rooted at prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}
