package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/inmemory"
	"github.com/metalad-go/metalad/graph"
)

func TestMetadataAppendOnly(t *testing.T) {
	md := graph.NewMetadata()
	require.Empty(t, md.Runs())

	md.AddExtractorRun(graph.ExtractorRun{ExtractorName: "core"})
	md.AddExtractorRun(graph.ExtractorRun{ExtractorName: "xmp"})

	runs := md.Runs()
	require.Len(t, runs, 2)
	require.Equal(t, "core", runs[0].ExtractorName)
	require.Equal(t, "xmp", runs[1].ExtractorName)
}

func TestDatasetTreeAddRejectsCollision(t *testing.T) {
	tree := graph.NewDatasetTree()
	mrr := graph.NewMetadataRootRecord(graph.NewUUID(), "v1")
	require.NoError(t, tree.Add("a/b", mrr))
	require.Error(t, tree.Add("a/b", mrr))

	tree.DeleteSubtree("a/b")
	require.NoError(t, tree.Add("a/b", mrr))
}

func TestDatasetTreeDeleteSubtree(t *testing.T) {
	tree := graph.NewDatasetTree()
	mrr := graph.NewMetadataRootRecord(graph.NewUUID(), "v1")
	require.NoError(t, tree.Add("sub", mrr))
	require.NoError(t, tree.Add("sub/child", mrr))
	require.NoError(t, tree.Add("other", mrr))

	tree.DeleteSubtree("sub")

	require.False(t, tree.Contains("sub"))
	require.False(t, tree.Contains("sub/child"))
	require.True(t, tree.Contains("other"))
}

// TestInvariant2SameMRRAcrossIndexes checks that the same (uuid, version)
// pair reaches the same underlying MRR whether resolved through the
// UUIDSet or through a DatasetTree -- spec.md invariant 2.
func TestInvariant2SameMRRAcrossIndexes(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const realm backend.RealmID = "realm"

	uuid := graph.NewUUID()
	var version graph.Version = "v1"

	tree := graph.NewDatasetTree()
	mrr, err := tree.GetOrCreate(ctx, b, "", uuid, version)
	require.NoError(t, err)

	md, err := mrr.DatasetLevelMetadata(ctx, b)
	require.NoError(t, err)
	md.AddExtractorRun(graph.ExtractorRun{ExtractorName: "core"})

	uuidSet := graph.NewUUIDSet()
	vl, err := uuidSet.GetOrCreateVersionList(ctx, b, uuid)
	require.NoError(t, err)
	vl.Set(version, "100", "", mrr)

	tvl := graph.NewTreeVersionList()
	tvl.SetDatasetTree(version, "100", tree)

	_, err = tvl.Save(ctx, b, realm)
	require.NoError(t, err)
	_, err = uuidSet.Save(ctx, b, realm)
	require.NoError(t, err)

	// Reload everything from scratch and confirm both paths see the run.
	loadedTVL, loadedUS, ok, err := graph.LoadRoots(ctx, b, realm)
	require.NoError(t, err)
	require.True(t, ok)

	_, loadedTree, found, err := loadedTVL.GetDatasetTree(ctx, b, version)
	require.NoError(t, err)
	require.True(t, found)
	treeMRR, found, err := loadedTree.Get(ctx, b, "")
	require.NoError(t, err)
	require.True(t, found)

	loadedVL, found, err := loadedUS.GetVersionList(ctx, b, uuid)
	require.NoError(t, err)
	require.True(t, found)
	_, _, setMRR, found, err := loadedVL.Get(ctx, b, version)
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, treeMRR.DatasetUUID(), setMRR.DatasetUUID())
	require.Equal(t, treeMRR.DatasetVersion(), setMRR.DatasetVersion())

	treeMD, err := treeMRR.DatasetLevelMetadata(ctx, b)
	require.NoError(t, err)
	setMD, err := setMRR.DatasetLevelMetadata(ctx, b)
	require.NoError(t, err)
	require.Equal(t, treeMD.Runs(), setMD.Runs())
	require.Len(t, treeMD.Runs(), 1)
}

func TestJoinPathCollapsesEmptyComponents(t *testing.T) {
	require.Equal(t, graph.Path(""), graph.JoinPath("", ""))
	require.Equal(t, graph.Path("a"), graph.JoinPath("", "a"))
	require.Equal(t, graph.Path("a"), graph.JoinPath("a", ""))
	require.Equal(t, graph.Path("a/b"), graph.JoinPath("a", "b"))
}

func TestPathHasPrefix(t *testing.T) {
	require.True(t, graph.Path("sub1/sub2").HasPrefix("sub1"))
	require.True(t, graph.Path("sub1").HasPrefix("sub1"))
	require.False(t, graph.Path("sub10").HasPrefix("sub1"))
	require.True(t, graph.Path("anything").HasPrefix(""))
}
