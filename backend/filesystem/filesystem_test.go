package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/merrors"
)

func TestPutGetRoundTrip(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()

	id, err := d.Put(ctx, []byte("hello"))
	require.NoError(t, err)

	got, err := d.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestPutIsIdempotentOnSameContent(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()

	id1, err := d.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	id2, err := d.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestGetMissingBlobReturnsNotFound(t *testing.T) {
	d := New(t.TempDir())
	_, err := d.Get(context.Background(), "sha256:deadbeef")
	var nf merrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRefRoundTripAndMissingRef(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()
	realm := backend.RealmID("realm-a")

	id, err := d.Put(ctx, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, d.PutRef(ctx, realm, "tree-version-list", id))

	got, ok, err := d.GetRef(ctx, realm, "tree-version-list")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok, err = d.GetRef(ctx, realm, "uuid-set")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLockIsExclusivePerRealm(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()
	realm := backend.RealmID("realm-a")

	require.NoError(t, d.Lock(ctx, realm))

	ctx2, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err := d.Lock(ctx2, realm)
	require.Error(t, err, "lock should still be held by the first acquisition")

	require.NoError(t, d.Unlock(ctx, realm))

	ctx3, cancel3 := context.WithTimeout(ctx, time.Second)
	defer cancel3()
	require.NoError(t, d.Lock(ctx3, realm))
	require.NoError(t, d.Unlock(ctx, realm))
}

func TestUnlockOnAbsentLockfileIsNotAnError(t *testing.T) {
	d := New(t.TempDir())
	require.NoError(t, d.Unlock(context.Background(), backend.RealmID("realm-a")))
}

func TestBlobLayoutIsShardedByDigest(t *testing.T) {
	root := t.TempDir()
	d := New(root)
	id, err := d.Put(context.Background(), []byte("payload"))
	require.NoError(t, err)

	hex := id.Encoded()
	want := filepath.Join(root, "blobs", id.Algorithm().String(), hex[:2], hex)
	_, err = os.Stat(want)
	require.NoError(t, err)
}
