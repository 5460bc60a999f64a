// Package extractor defines the pluggable extraction protocol (spec.md
// §4.D). It deliberately carries no built-in registry: the core never
// knows the set of extractor names that exist, only how to call one once
// handed an instance. Grounded on datalad-metalad's extractor ABCs
// (extract.py's MetadataExtractorBase/DatasetMetadataExtractor/
// FileMetadataExtractor), restated as a single Go interface plus an
// injected factory function instead of a class hierarchy plus
// entry_points-based discovery.
package extractor

import (
	"context"
	"io"
)

// Kind distinguishes a dataset-level extractor from a file-level one
// (spec.md §4.D).
type Kind string

const (
	DatasetMetadataExtractor Kind = "dataset"
	FileMetadataExtractor    Kind = "file"
)

// OutputCategory describes the shape of an extractor's result (spec.md
// §4.D). DirectoryOutput is reserved: no extractor may declare it yet
// (merrors.NotImplementedError).
type OutputCategory string

const (
	ImmediateOutput OutputCategory = "immediate"
	FileOutput      OutputCategory = "file"
	DirectoryOutput OutputCategory = "directory"
)

// Result is what an extractor hands back after a run.
type Result struct {
	// Immediate carries the result inline when Category == ImmediateOutput.
	Immediate any
	// WroteToSink is true when the extractor wrote its output to the sink
	// passed to Extract (Category == FileOutput); the caller is
	// responsible for turning the sink's bytes into a blob payload.
	WroteToSink bool
	Category    OutputCategory
}

// Extractor is the contract a plugin implements (spec.md §4.D). An
// instance is bound to one dataset or file at construction time by its
// Factory; Extract may be called at most once.
type Extractor interface {
	// Kind reports whether this is a dataset-level or file-level
	// extractor.
	Kind() Kind

	// IsContentRequired reports, for a file-level extractor, whether the
	// file's content must be available locally before Extract is called
	// (spec.md §4.D) -- irrelevant for dataset-level extractors.
	IsContentRequired() bool

	// Extract runs the extractor. For FileOutput extractors it writes its
	// result to sink and reports Result.WroteToSink; for ImmediateOutput
	// extractors it returns the value directly via Result.Immediate and
	// never touches sink.
	Extract(ctx context.Context, sink io.Writer) (*Result, error)
}

// Factory constructs a bound Extractor instance for the named extractor,
// for a dataset or file the caller already knows about -- the factory
// closure itself carries that binding. Extraction pipelines take a
// Factory as a dependency rather than reaching into a global registry, so
// a caller can wire in any plugin source (a static map, a plugin
// subprocess, a test double) without this package knowing about it.
type Factory func(name string) (Extractor, error)
