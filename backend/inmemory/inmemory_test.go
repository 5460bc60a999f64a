package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/merrors"
)

func TestPutGetRoundTrip(t *testing.T) {
	d := New()
	ctx := context.Background()

	id, err := d.Put(ctx, []byte("hello"))
	require.NoError(t, err)

	got, err := d.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestPutIsContentAddressed(t *testing.T) {
	d := New()
	ctx := context.Background()

	id1, err := d.Put(ctx, []byte("same"))
	require.NoError(t, err)
	id2, err := d.Put(ctx, []byte("same"))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestGetMissingBlobReturnsNotFound(t *testing.T) {
	d := New()
	_, err := d.Get(context.Background(), "sha256:deadbeef")
	var nf merrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "blob", nf.Kind)
}

func TestRefRoundTripAndMissingRef(t *testing.T) {
	d := New()
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

func TestRefsAreScopedPerRealm(t *testing.T) {
	d := New()
	ctx := context.Background()

	id, err := d.Put(ctx, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, d.PutRef(ctx, backend.RealmID("realm-a"), "root", id))

	_, ok, err := d.GetRef(ctx, backend.RealmID("realm-b"), "root")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLockUnlockIsPerRealm(t *testing.T) {
	d := New()
	ctx := context.Background()

	require.NoError(t, d.Lock(ctx, backend.RealmID("realm-a")))
	defer d.Unlock(ctx, backend.RealmID("realm-a"))

	// A different realm's lock must not contend with realm-a's.
	done := make(chan struct{})
	go func() {
		require.NoError(t, d.Lock(ctx, backend.RealmID("realm-b")))
		d.Unlock(ctx, backend.RealmID("realm-b"))
		close(done)
	}()
	<-done
}
