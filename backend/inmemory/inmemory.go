// Package inmemory is a map-backed backend.Backend intended solely for
// tests, grounded on the registry's own inmemory storage driver.
package inmemory

import (
	"context"
	"sync"

	digest "github.com/opencontainers/go-digest"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/factory"
	"github.com/metalad-go/metalad/merrors"
)

const driverName = "inmemory"

func init() {
	factory.Register(driverName, func(parameters map[string]any) (backend.Backend, error) {
		return New(), nil
	})
}

// Driver is an in-memory backend.Backend. Locks are real sync.Mutex values
// per realm, so Lock genuinely blocks concurrent goroutines contending for
// the same realm, even though there is only one process. Lock ignores its
// ctx: it waits for the realm's mutex however long that takes and never
// returns ctx.Err().
type Driver struct {
	mu    sync.RWMutex
	blobs map[digest.Digest][]byte
	refs  map[backend.RealmID]map[string]digest.Digest

	realmLocksMu sync.Mutex
	realmLocks   map[backend.RealmID]*sync.Mutex
}

var _ backend.Backend = (*Driver)(nil)

// New constructs an empty in-memory backend.
func New() *Driver {
	return &Driver{
		blobs:      make(map[digest.Digest][]byte),
		refs:       make(map[backend.RealmID]map[string]digest.Digest),
		realmLocks: make(map[backend.RealmID]*sync.Mutex),
	}
}

func (d *Driver) Put(ctx context.Context, data []byte) (backend.BlobID, error) {
	id := digest.FromBytes(data)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (d *Driver) Get(ctx context.Context, id backend.BlobID) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.blobs[id]
	if !ok {
		return nil, merrors.NotFoundError{Kind: "blob", Key: id.String()}
	}
	return append([]byte(nil), data...), nil
}

func (d *Driver) PutRef(ctx context.Context, realm backend.RealmID, name string, id backend.BlobID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs[realm] == nil {
		d.refs[realm] = make(map[string]digest.Digest)
	}
	d.refs[realm][name] = id
	return nil
}

func (d *Driver) GetRef(ctx context.Context, realm backend.RealmID, name string) (backend.BlobID, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.refs[realm][name]
	return id, ok, nil
}

func (d *Driver) Flush(ctx context.Context, realm backend.RealmID) error {
	// Everything is already durable in the process's own memory.
	return nil
}

func (d *Driver) realmLock(realm backend.RealmID) *sync.Mutex {
	d.realmLocksMu.Lock()
	defer d.realmLocksMu.Unlock()
	l, ok := d.realmLocks[realm]
	if !ok {
		l = &sync.Mutex{}
		d.realmLocks[realm] = l
	}
	return l
}

func (d *Driver) Lock(ctx context.Context, realm backend.RealmID) error {
	d.realmLock(realm).Lock()
	return nil
}

func (d *Driver) Unlock(ctx context.Context, realm backend.RealmID) error {
	d.realmLock(realm).Unlock()
	return nil
}
