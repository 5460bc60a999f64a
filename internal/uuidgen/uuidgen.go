// Package uuidgen wraps google/uuid for the handful of call sites inside
// the module that need a fresh, opaque identifier (scratch file names) and
// don't care about dataset identity semantics.
package uuidgen

import "github.com/google/uuid"

// NewString returns a new random UUID string.
func NewString() string {
	return uuid.NewString()
}
