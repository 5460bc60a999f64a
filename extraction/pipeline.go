// Package extraction implements the extraction pipeline: running one
// extractor against one dataset or file and recording its result in the
// metadata graph (spec.md §4.E).
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/extractor"
	"github.com/metalad-go/metalad/graph"
	"github.com/metalad-go/metalad/internal/dcontext"
	"github.com/metalad-go/metalad/merrors"
)

// Params carries everything extraction.Run needs beyond the extractor
// itself (spec.md §4.E: "target realm, source dataset reference, source
// dataset UUID, source dataset version, extractor name, destination
// dataset-tree path, optional file-tree path, root (destination) version,
// agent identity").
type Params struct {
	Realm backend.RealmID

	SourceDatasetReference string // opaque, logged only
	SourceUUID             graph.UUID
	SourceVersion          graph.Version

	ExtractorName string

	DatasetTreePath graph.Path
	FileTreePath    *graph.Path // nil for dataset-level extraction
	RootVersion     graph.Version

	Timestamp graph.Timestamp

	AgentName            string
	AgentEmail           string
	ExtractorVersion     string
	ExtractionParameters map[string]string
}

// Deps are the extraction pipeline's external collaborators.
type Deps struct {
	Backend backend.Backend
	Factory extractor.Factory
}

// Result reports what happened: a failed extraction yields OK=false with
// no graph mutation (spec.md §4.E failure semantics), not a Go error --
// the run itself still completed.
type Result struct {
	OK      bool
	Payload graph.Payload
	Err     error
}

// Run executes the 9-step algorithm of spec.md §4.E.
func Run(ctx context.Context, deps Deps, params Params) (*Result, error) {
	var result *Result
	err := backend.WithRealmLock(ctx, deps.Backend, params.Realm, func(ctx context.Context) error {
		b := deps.Backend

		// Step 2: load or create the realm's roots.
		tvl, uuidSet, err := graph.LoadOrCreateRoots(ctx, b, params.Realm)
		if err != nil {
			return err
		}

		// Step 3: locate or create the VersionList for the source UUID.
		versionList, err := uuidSet.GetOrCreateVersionList(ctx, b, params.SourceUUID)
		if err != nil {
			return err
		}

		// Step 4: locate or create the DatasetTree bound to root_version.
		datasetTree, err := tvl.GetOrCreateDatasetTree(ctx, b, params.RootVersion, params.Timestamp)
		if err != nil {
			return err
		}

		// Step 5: locate or create the MRR at dataset_tree_path.
		mrr, err := datasetTree.GetOrCreate(ctx, b, params.DatasetTreePath, params.SourceUUID, params.SourceVersion)
		if err != nil {
			return err
		}

		// Step 6: upsert the VersionList entry pointing at the same MRR
		// (invariant 2: the same (uuid, version) always resolves to the
		// identical MRR whether reached through the UUIDSet or a
		// DatasetTree).
		versionList.Set(params.SourceVersion, params.Timestamp, params.DatasetTreePath, mrr)

		// Step 7: obtain the Metadata target.
		md, err := metadataTarget(ctx, b, mrr, params.FileTreePath)
		if err != nil {
			return err
		}

		// Step 8: invoke the extractor.
		ext, err := deps.Factory(params.ExtractorName)
		if err != nil {
			return merrors.BackendError{Op: "extraction.Run: resolve extractor", Err: err}
		}
		if err := checkKind(ext.Kind(), params.FileTreePath); err != nil {
			return err
		}

		var sink bytes.Buffer
		extractResult, extractErr := ext.Extract(ctx, &sink)
		if extractErr != nil {
			result = &Result{OK: false, Err: extractErr}
			return nil
		}
		if extractResult == nil {
			result = &Result{OK: false, Err: fmt.Errorf("extractor %q returned a nil result", params.ExtractorName)}
			return nil
		}

		payload, err := buildPayload(ctx, b, extractResult, sink.Bytes())
		if err != nil {
			return err
		}

		md.AddExtractorRun(graph.ExtractorRun{
			Timestamp:            params.Timestamp,
			ExtractorName:        params.ExtractorName,
			AgentName:            params.AgentName,
			AgentEmail:           params.AgentEmail,
			ExtractorVersion:     params.ExtractorVersion,
			ExtractionParameters: params.ExtractionParameters,
			Payload:              payload,
		})

		// Step 9: save roots and flush. Unlock happens in
		// backend.WithRealmLock's defer.
		if _, err := tvl.Save(ctx, b, params.Realm); err != nil {
			return err
		}
		if _, err := uuidSet.Save(ctx, b, params.Realm); err != nil {
			return err
		}
		if err := b.Flush(ctx, params.Realm); err != nil {
			return err
		}

		result = &Result{OK: true, Payload: payload}
		dcontext.GetLogger(ctx).Infof("extraction %q on %s@%s recorded at %s", params.ExtractorName, params.SourceUUID, params.SourceVersion, params.DatasetTreePath)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func metadataTarget(ctx context.Context, b backend.Backend, mrr *graph.MetadataRootRecord, fileTreePath *graph.Path) (*graph.Metadata, error) {
	if fileTreePath == nil {
		return mrr.DatasetLevelMetadata(ctx, b)
	}
	fileTree, err := mrr.FileTree(ctx, b)
	if err != nil {
		return nil, err
	}
	return fileTree.Get(ctx, b, *fileTreePath)
}

func checkKind(kind extractor.Kind, fileTreePath *graph.Path) error {
	wantFile := fileTreePath != nil
	if wantFile && kind != extractor.FileMetadataExtractor {
		return merrors.InvalidArgumentError{Message: "a file-tree path was given but the extractor is dataset-level"}
	}
	if !wantFile && kind != extractor.DatasetMetadataExtractor {
		return merrors.InvalidArgumentError{Message: "no file-tree path was given but the extractor is file-level"}
	}
	return nil
}

func buildPayload(ctx context.Context, b backend.Backend, r *extractor.Result, sink []byte) (graph.Payload, error) {
	switch r.Category {
	case extractor.ImmediateOutput:
		return graph.ImmediatePayload(r.Immediate)
	case extractor.FileOutput:
		id, err := b.Put(ctx, sink)
		if err != nil {
			return graph.Payload{}, err
		}
		return graph.BlobPayload(id), nil
	case extractor.DirectoryOutput:
		return graph.Payload{}, merrors.NotImplementedError{Feature: "DIRECTORY output category"}
	default:
		return graph.Payload{}, merrors.InvalidArgumentError{Message: fmt.Sprintf("unknown output category %q", r.Category)}
	}
}

// DerivePaths computes (dataset_tree_path, file_tree_path) from a single
// CLI path argument relative to the source and destination dataset roots
// (spec.md §6: "destination_dataset specifies... source's dataset-tree
// path is computed as the relative path from destination to source").
// Grounded on extract.py's get_path_info.
//
// sourceRoot and destinationRoot are realm-relative paths to the source
// and destination dataset directories; path is the argument the caller
// passed on the command line, relative to sourceRoot. If path equals
// sourceRoot (or is empty), the extraction is dataset-level and
// fileTreePath is nil.
func DerivePaths(sourceRoot, destinationRoot, path graph.Path) (datasetTreePath graph.Path, fileTreePath *graph.Path) {
	datasetTreePath = relativePath(destinationRoot, sourceRoot)
	if path == "" || path == sourceRoot {
		return datasetTreePath, nil
	}
	ftp := relativePath(sourceRoot, path)
	return datasetTreePath, &ftp
}

// relativePath computes p's path relative to base, both realm-relative
// slash paths, without touching the filesystem (these are logical graph
// paths, not OS paths).
func relativePath(base, p graph.Path) graph.Path {
	if base == "" {
		return p
	}
	if p == base {
		return ""
	}
	trimmed := strings.TrimPrefix(string(p), string(base)+"/")
	return graph.Path(trimmed)
}
