// Package merrors defines the abstract error taxonomy shared by every
// package in this module, in the registry's own style: small typed structs
// implementing error, rather than bare sentinels, so callers can recover the
// offending path or key with errors.As.
package merrors

import "fmt"

// PathAlreadyExistsError records an attempt to add a path that the indexed
// content store already has an entry for.
type PathAlreadyExistsError struct {
	Path string
}

func (e PathAlreadyExistsError) Error() string {
	return fmt.Sprintf("path already exists: %s", e.Path)
}

// MetadataAlreadyExistsError records an attempt to add metadata at a
// (path, format) pair the indexed content store already has.
type MetadataAlreadyExistsError struct {
	Path   string
	Format string
}

func (e MetadataAlreadyExistsError) Error() string {
	return fmt.Sprintf("metadata already exists at path %q, format %q", e.Path, e.Format)
}

// NotFoundError records a lookup of a path, format, or blob id that does not
// exist.
type NotFoundError struct {
	Kind string // "path", "format", "blob", "ref", ...
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// VersionMismatchError records an on-disk index or graph root carrying an
// unrecognized version tag.
type VersionMismatchError struct {
	Expected string
	Got      string
}

func (e VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %q, got %q", e.Expected, e.Got)
}

// InvalidArgumentError records a malformed caller-supplied argument, e.g. an
// odd-length (path, realm) list, or a path that escapes a root.
type InvalidArgumentError struct {
	Message string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

// NotImplementedError records a request for a behavior that is reserved but
// not implemented: the DIRECTORY output category, recursive aggregation, a
// containment backend other than "git".
type NotImplementedError struct {
	Feature string
}

func (e NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Feature)
}

// BackendError wraps an I/O or lock failure propagated up from a
// backend.Backend implementation.
type BackendError struct {
	Op  string
	Err error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("backend error during %s: %v", e.Op, e.Err)
}

func (e BackendError) Unwrap() error {
	return e.Err
}
