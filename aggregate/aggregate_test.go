package aggregate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/aggregate"
	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/inmemory"
	"github.com/metalad-go/metalad/graph"
)

// fakeProber maps (parentRealmPath, subPath, subVersion) triples to a
// fixed root version, for tests that don't need real git history.
type fakeProber struct {
	rootVersion string
	found       bool
}

func (p fakeProber) FindRootVersion(ctx context.Context, parentRealmPath, subPath, subVersion string) (string, bool, error) {
	return p.rootVersion, p.found, nil
}

func buildSource(t *testing.T, b backend.Backend) (*graph.TreeVersionList, *graph.UUIDSet, graph.UUID) {
	t.Helper()
	ctx := context.Background()
	uuid := graph.NewUUID()

	tree := graph.NewDatasetTree()
	mrr, err := tree.GetOrCreate(ctx, b, "", uuid, "sv1")
	require.NoError(t, err)
	md, err := mrr.DatasetLevelMetadata(ctx, b)
	require.NoError(t, err)
	md.AddExtractorRun(graph.ExtractorRun{ExtractorName: "core"})

	tvl := graph.NewTreeVersionList()
	tvl.SetDatasetTree("sv1", "100", tree)

	us := graph.NewUUIDSet()
	vl, err := us.GetOrCreateVersionList(ctx, b, uuid)
	require.NoError(t, err)
	vl.Set("sv1", "100", "", mrr)

	return tvl, us, uuid
}

// TestS4AggregationRewritesPaths covers scenario S4: aggregating a source
// whose root contains a dataset at "" into a destination path should
// produce a DatasetTree entry at the destination path, not at "".
func TestS4AggregationRewritesPaths(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const destRealm backend.RealmID = "dest"

	sourceTVL, sourceUS, uuid := buildSource(t, b)

	items := []aggregate.AggregateItem{{
		SourceTreeVersionList: sourceTVL,
		SourceUUIDSet:         sourceUS,
		DestinationPath:       "sub1/sub2",
	}}
	opts := aggregate.AggregateOptions{
		Prober:            fakeProber{rootVersion: "root-v1", found: true},
		ParentRealmFSPath: "/realms/dest",
		Timestamp:         "200",
	}

	result, err := aggregate.Aggregate(ctx, b, destRealm, items, opts)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, aggregate.StatusOK, result.Items[0].Status)

	destTVL, destUS, ok, err := graph.LoadRoots(ctx, b, destRealm)
	require.NoError(t, err)
	require.True(t, ok)

	_, destTree, found, err := destTVL.GetDatasetTree(ctx, b, "root-v1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, destTree.Contains("sub1/sub2"))
	require.False(t, destTree.Contains(""))

	destVL, found, err := destUS.GetVersionList(ctx, b, uuid)
	require.NoError(t, err)
	require.True(t, found)
	_, path, _, found, err := destVL.Get(ctx, b, "sv1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, graph.Path("sub1/sub2"), path)
}

// TestS5AggregationWithTreeCollisionReplaces covers scenario S5: an
// existing subtree at the destination path is replaced, not merged, when
// a new source lands on top of it.
func TestS5AggregationWithTreeCollisionReplaces(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const destRealm backend.RealmID = "dest"

	opts := aggregate.AggregateOptions{
		Prober:            fakeProber{rootVersion: "vR", found: true},
		ParentRealmFSPath: "/realms/dest",
		Timestamp:         "200",
	}

	firstTVL, firstUS, _ := buildSource(t, b)
	_, err := aggregate.Aggregate(ctx, b, destRealm, []aggregate.AggregateItem{{
		SourceTreeVersionList: firstTVL,
		SourceUUIDSet:         firstUS,
		DestinationPath:       "sub1/sub2",
	}}, opts)
	require.NoError(t, err)

	secondTVL, secondUS, secondUUID := buildSource(t, b)
	result, err := aggregate.Aggregate(ctx, b, destRealm, []aggregate.AggregateItem{{
		SourceTreeVersionList: secondTVL,
		SourceUUIDSet:         secondUS,
		DestinationPath:       "sub1/sub2",
	}}, opts)
	require.NoError(t, err)
	require.Equal(t, aggregate.StatusOK, result.Items[0].Status)

	destTVL, destUS, ok, err := graph.LoadRoots(ctx, b, destRealm)
	require.NoError(t, err)
	require.True(t, ok)

	_, destTree, found, err := destTVL.GetDatasetTree(ctx, b, "vR")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, destTree.Contains("sub1/sub2"))

	mrr, found, err := destTree.Get(ctx, b, "sub1/sub2")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, secondUUID, mrr.DatasetUUID())

	_, found, err = destUS.GetVersionList(ctx, b, secondUUID)
	require.NoError(t, err)
	require.True(t, found)
}

// TestDetachedMetadataRejectsByDefault covers the default "reject" policy
// for the detached-metadata open question.
func TestDetachedMetadataRejectsByDefault(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const destRealm backend.RealmID = "dest"

	sourceTVL, sourceUS, _ := buildSource(t, b)
	opts := aggregate.AggregateOptions{
		Prober:            fakeProber{found: false},
		ParentRealmFSPath: "/realms/dest",
		Timestamp:         "200",
	}

	result, err := aggregate.Aggregate(ctx, b, destRealm, []aggregate.AggregateItem{{
		SourceTreeVersionList: sourceTVL,
		SourceUUIDSet:         sourceUS,
		DestinationPath:       "sub",
	}}, opts)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, aggregate.StatusError, result.Items[0].Status)
}

// TestDetachedMetadataSynthesizesWhenOptedIn covers the opt-in
// "synthesize a fresh root version" policy.
func TestDetachedMetadataSynthesizesWhenOptedIn(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const destRealm backend.RealmID = "dest"

	sourceTVL, sourceUS, _ := buildSource(t, b)
	opts := aggregate.AggregateOptions{
		Prober:            fakeProber{found: false},
		ParentRealmFSPath: "/realms/dest",
		Timestamp:         "200",
		OnDetached:        aggregate.SynthesizeDetached,
	}

	result, err := aggregate.Aggregate(ctx, b, destRealm, []aggregate.AggregateItem{{
		SourceTreeVersionList: sourceTVL,
		SourceUUIDSet:         sourceUS,
		DestinationPath:       "sub",
	}}, opts)
	require.NoError(t, err)
	require.Equal(t, aggregate.StatusOK, result.Items[0].Status)

	destTVL, _, ok, err := graph.LoadRoots(ctx, b, destRealm)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, destTVL.Versions(), 1)
}

func TestRecursiveAggregationNotImplemented(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	_, err := aggregate.Aggregate(ctx, b, "dest", nil, aggregate.AggregateOptions{Recursive: true})
	require.Error(t, err)
}
