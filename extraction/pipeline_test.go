package extraction_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/inmemory"
	"github.com/metalad-go/metalad/extraction"
	"github.com/metalad-go/metalad/extractor"
	"github.com/metalad-go/metalad/graph"
)

type fakeExtractor struct {
	kind     extractor.Kind
	category extractor.OutputCategory
	value    any
	bytes    []byte
}

func (f *fakeExtractor) Kind() extractor.Kind    { return f.kind }
func (f *fakeExtractor) IsContentRequired() bool { return false }
func (f *fakeExtractor) Extract(ctx context.Context, sink io.Writer) (*extractor.Result, error) {
	if f.category == extractor.FileOutput {
		if _, err := sink.Write(f.bytes); err != nil {
			return nil, err
		}
		return &extractor.Result{Category: extractor.FileOutput, WroteToSink: true}, nil
	}
	return &extractor.Result{Category: extractor.ImmediateOutput, Immediate: f.value}, nil
}

// TestS1DatasetLevelExtraction covers scenario S1: a dataset-level
// extraction with an immediate-output extractor.
func TestS1DatasetLevelExtraction(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const realm backend.RealmID = "realm"
	uuid := graph.NewUUID()

	deps := extraction.Deps{
		Backend: b,
		Factory: func(name string) (extractor.Extractor, error) {
			return &fakeExtractor{kind: extractor.DatasetMetadataExtractor, category: extractor.ImmediateOutput, value: map[string]any{"x": float64(1)}}, nil
		},
	}
	params := extraction.Params{
		Realm:           realm,
		SourceUUID:      uuid,
		SourceVersion:   "v1",
		ExtractorName:   "core",
		DatasetTreePath: "",
		RootVersion:     "root-v1",
		Timestamp:       "100",
		AgentName:       "tester",
	}

	result, err := extraction.Run(ctx, deps, params)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, graph.PayloadImmediate, result.Payload.Type)

	tvl, us, ok, err := graph.LoadRoots(ctx, b, realm)
	require.NoError(t, err)
	require.True(t, ok)

	_, tree, found, err := tvl.GetDatasetTree(ctx, b, "root-v1")
	require.NoError(t, err)
	require.True(t, found)
	mrr, found, err := tree.Get(ctx, b, "")
	require.NoError(t, err)
	require.True(t, found)
	md, err := mrr.DatasetLevelMetadata(ctx, b)
	require.NoError(t, err)
	require.Len(t, md.Runs(), 1)
	require.Equal(t, "core", md.Runs()[0].ExtractorName)

	vl, found, err := us.GetVersionList(ctx, b, uuid)
	require.NoError(t, err)
	require.True(t, found)
	_, _, setMRR, found, err := vl.Get(ctx, b, "v1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, mrr.DatasetUUID(), setMRR.DatasetUUID())
}

// TestS2FileLevelExtractionWithFileOutput covers scenario S2: a
// file-level extraction whose extractor writes to the sink, yielding a
// blob payload.
func TestS2FileLevelExtractionWithFileOutput(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const realm backend.RealmID = "realm"
	uuid := graph.NewUUID()
	filePath := graph.Path("sub/file.txt")

	deps := extraction.Deps{
		Backend: b,
		Factory: func(name string) (extractor.Extractor, error) {
			return &fakeExtractor{kind: extractor.FileMetadataExtractor, category: extractor.FileOutput, bytes: []byte(`{"x":1}`)}, nil
		},
	}
	params := extraction.Params{
		Realm:           realm,
		SourceUUID:      uuid,
		SourceVersion:   "v1",
		ExtractorName:   "filemeta",
		DatasetTreePath: "",
		FileTreePath:    &filePath,
		RootVersion:     "root-v1",
		Timestamp:       "100",
	}

	result, err := extraction.Run(ctx, deps, params)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, graph.PayloadBlob, result.Payload.Type)

	blob, err := b.Get(ctx, result.Payload.Location)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"x":1}`), blob)

	_, us, ok, err := graph.LoadRoots(ctx, b, realm)
	require.NoError(t, err)
	require.True(t, ok)
	vl, found, err := us.GetVersionList(ctx, b, uuid)
	require.NoError(t, err)
	require.True(t, found)
	_, _, mrr, found, err := vl.Get(ctx, b, "v1")
	require.NoError(t, err)
	require.True(t, found)
	fileTree, err := mrr.FileTree(ctx, b)
	require.NoError(t, err)
	md, err := fileTree.Get(ctx, b, filePath)
	require.NoError(t, err)
	require.Len(t, md.Runs(), 1)
	require.Equal(t, graph.PayloadBlob, md.Runs()[0].Payload.Type)
}

func TestExtractorFailureLeavesNoGraphMutation(t *testing.T) {
	ctx := context.Background()
	b := inmemory.New()
	const realm backend.RealmID = "realm"

	deps := extraction.Deps{
		Backend: b,
		Factory: func(name string) (extractor.Extractor, error) {
			return &failingExtractor{}, nil
		},
	}
	params := extraction.Params{
		Realm:         realm,
		SourceUUID:    graph.NewUUID(),
		SourceVersion: "v1",
		ExtractorName: "broken",
		RootVersion:   "root-v1",
		Timestamp:     "100",
	}

	result, err := extraction.Run(ctx, deps, params)
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Error(t, result.Err)

	_, _, ok, err := graph.LoadRoots(ctx, b, realm)
	require.NoError(t, err)
	require.False(t, ok)
}

type failingExtractor struct{}

func (failingExtractor) Kind() extractor.Kind    { return extractor.DatasetMetadataExtractor }
func (failingExtractor) IsContentRequired() bool { return false }
func (failingExtractor) Extract(ctx context.Context, sink io.Writer) (*extractor.Result, error) {
	return nil, errExtractorBroken
}

var errExtractorBroken = errors.New("extractor exploded")

func TestDerivePathsDatasetLevel(t *testing.T) {
	dtp, ftp := extraction.DerivePaths("sub/ds", "sub/ds", "sub/ds")
	require.Equal(t, graph.Path(""), dtp)
	require.Nil(t, ftp)
}

func TestDerivePathsFileLevel(t *testing.T) {
	dtp, ftp := extraction.DerivePaths("sub/ds", "sub/ds", "sub/ds/file.txt")
	require.Equal(t, graph.Path(""), dtp)
	require.NotNil(t, ftp)
	require.Equal(t, graph.Path("file.txt"), *ftp)
}

func TestDerivePathsCrossDataset(t *testing.T) {
	dtp, ftp := extraction.DerivePaths("parent/child", "parent", "parent/child")
	require.Equal(t, graph.Path("child"), dtp)
	require.Nil(t, ftp)
}
