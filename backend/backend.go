// Package backend defines the opaque content-addressed storage contract
// that the metadata graph model is built on: put/get by content digest,
// per-realm flush, and per-realm advisory locking. Concrete storage (the
// underlying content-addressed object store) is an external collaborator;
// this package only fixes the interface the graph model consumes, in the
// style of the registry's storagedriver.StorageDriver.
package backend

import (
	"context"

	digest "github.com/opencontainers/go-digest"
)

// BlobID is a stable content digest: identical bytes always produce an
// identical BlobID. Backed by the same digest convention
// (algorithm:hex) the registry uses for blob addressing.
type BlobID = digest.Digest

// RealmID names a storage location. All locking and flushing is scoped to a
// realm; blob content itself is realm-agnostic (content-addressed, so the
// same bytes anywhere produce the same BlobID).
type RealmID string

// Backend is the adapter contract a concrete content-addressed object store
// must satisfy. Implementations need not be safe for concurrent use by
// multiple goroutines without relying on Lock/Unlock for writers.
type Backend interface {
	// Put stores data and returns its content id. Calling Put twice with
	// identical bytes must return the same BlobID.
	Put(ctx context.Context, data []byte) (BlobID, error)

	// Get retrieves previously stored bytes by id. Returns a
	// merrors.NotFoundError if id is unknown.
	Get(ctx context.Context, id BlobID) ([]byte, error)

	// PutRef binds a well-known name within a realm (e.g. "tree-version-list",
	// "uuid-set") to a BlobID, the way the registry's blobStore links a path
	// to a digest. This is how graph roots are found again across processes.
	PutRef(ctx context.Context, realm RealmID, name string, id BlobID) error

	// GetRef resolves a well-known name within a realm to the BlobID it was
	// last bound to. ok is false if the name has never been set.
	GetRef(ctx context.Context, realm RealmID, name string) (id BlobID, ok bool, err error)

	// Flush durably persists everything written since the last Flush for
	// the given realm.
	Flush(ctx context.Context, realm RealmID) error

	// Lock acquires the realm's advisory write lock, blocking until
	// available or ctx is done. It need not exclude readers.
	Lock(ctx context.Context, realm RealmID) error

	// Unlock releases a lock acquired by Lock.
	Unlock(ctx context.Context, realm RealmID) error
}

// WithRealmLock acquires realm's lock, runs fn, and guarantees Unlock runs
// on every exit path -- including a panic unwinding through fn -- so a
// realm can never be left locked by a process that observed an error.
func WithRealmLock(ctx context.Context, b Backend, realm RealmID, fn func(ctx context.Context) error) (err error) {
	if err := b.Lock(ctx, realm); err != nil {
		return err
	}
	defer func() {
		if uerr := b.Unlock(ctx, realm); err == nil {
			err = uerr
		}
	}()
	return fn(ctx)
}
