// Package filesystem is a content-addressed backend.Backend that lays
// blobs out as one file per digest under a root directory, the way the
// registry's filesystem storage driver lays out blobs under a root
// directory -- but keyed directly by digest instead of by a repository
// path, since this backend only ever needs to resolve content by id.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	digest "github.com/opencontainers/go-digest"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/factory"
	"github.com/metalad-go/metalad/internal/uuidgen"
	"github.com/metalad-go/metalad/merrors"
)

const driverName = "filesystem"

func init() {
	factory.Register(driverName, func(parameters map[string]any) (backend.Backend, error) {
		root, _ := parameters["rootdirectory"].(string)
		if root == "" {
			return nil, fmt.Errorf("filesystem backend: rootdirectory parameter required")
		}
		return New(root), nil
	})
}

// lockPollInterval is how often Lock retries acquiring a realm's lockfile.
const lockPollInterval = 20 * time.Millisecond

// Driver is a filesystem-backed backend.Backend.
//
// Layout:
//
//	<root>/blobs/<alg>/<hex[:2]>/<hex>       content-addressed blobs
//	<root>/realms/<realm>/refs/<name>        named root pointers
//	<root>/realms/<realm>/.lock              advisory lockfile
type Driver struct {
	root string
}

var _ backend.Backend = (*Driver)(nil)

// New constructs a filesystem backend rooted at root. The directory is
// created on first use, not at construction time.
func New(root string) *Driver {
	return &Driver{root: root}
}

func (d *Driver) blobPath(id digest.Digest) string {
	hex := id.Encoded()
	return filepath.Join(d.root, "blobs", id.Algorithm().String(), hex[:2], hex)
}

func (d *Driver) Put(ctx context.Context, data []byte) (backend.BlobID, error) {
	id := digest.FromBytes(data)
	p := d.blobPath(id)
	if _, err := os.Stat(p); err == nil {
		return id, nil // already stored; content-addressed so bytes are identical
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", merrors.BackendError{Op: "put", Err: err}
	}
	tmp := p + "." + uuidgen.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", merrors.BackendError{Op: "put", Err: err}
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return "", merrors.BackendError{Op: "put", Err: err}
	}
	return id, nil
}

func (d *Driver) Get(ctx context.Context, id backend.BlobID) ([]byte, error) {
	data, err := os.ReadFile(d.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, merrors.NotFoundError{Kind: "blob", Key: id.String()}
		}
		return nil, merrors.BackendError{Op: "get", Err: err}
	}
	return data, nil
}

func (d *Driver) refPath(realm backend.RealmID, name string) string {
	return filepath.Join(d.root, "realms", string(realm), "refs", name)
}

func (d *Driver) PutRef(ctx context.Context, realm backend.RealmID, name string, id backend.BlobID) error {
	p := d.refPath(realm, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return merrors.BackendError{Op: "put-ref", Err: err}
	}
	tmp := p + "." + uuidgen.NewString() + ".tmp"
	if err := os.WriteFile(tmp, []byte(id.String()), 0o644); err != nil {
		return merrors.BackendError{Op: "put-ref", Err: err}
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return merrors.BackendError{Op: "put-ref", Err: err}
	}
	return nil
}

func (d *Driver) GetRef(ctx context.Context, realm backend.RealmID, name string) (backend.BlobID, bool, error) {
	data, err := os.ReadFile(d.refPath(realm, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, merrors.BackendError{Op: "get-ref", Err: err}
	}
	return digest.Digest(data), true, nil
}

// Flush is a no-op: every Put/PutRef above is already durable once it
// returns, since each writes through a temp-file-then-rename.
func (d *Driver) Flush(ctx context.Context, realm backend.RealmID) error {
	return nil
}

func (d *Driver) lockPath(realm backend.RealmID) string {
	return filepath.Join(d.root, "realms", string(realm), ".lock")
}

// Lock acquires realm's advisory lock by exclusively creating a lockfile,
// polling until it succeeds or ctx is done. There is no portable,
// dependency-free flock in the examples' stack, so an O_EXCL create loop is
// used instead -- it gives the same blocking-advisory-lock semantics the
// spec asks for without introducing a syscall-specific dependency.
func (d *Driver) Lock(ctx context.Context, realm backend.RealmID) error {
	p := d.lockPath(realm)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return merrors.BackendError{Op: "lock", Err: err}
	}
	for {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f.Close()
		}
		if !os.IsExist(err) {
			return merrors.BackendError{Op: "lock", Err: err}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func (d *Driver) Unlock(ctx context.Context, realm backend.RealmID) error {
	if err := os.Remove(d.lockPath(realm)); err != nil && !os.IsNotExist(err) {
		return merrors.BackendError{Op: "unlock", Err: err}
	}
	return nil
}
