// Package builtin ships the one concrete extractor this binary registers
// by default: a minimal dataset-level extractor reporting basic
// filesystem stat information. Grounded on datalad-metalad's
// DataladCoreDatasetExtractor (extractors/core_dataset.py), which also
// returns a small, always-available immediate_data dict (id, refcommit,
// path) rather than needing external tooling -- the Go equivalent drops
// the dataset-object-specific fields that have no counterpart in this
// module's graph model and keeps only what os.Stat can answer for any
// path.
package builtin

import (
	"context"
	"io"
	"os"

	"github.com/metalad-go/metalad/extractor"
)

// FileStat is a dataset-level extractor that stats target and reports its
// size, mode, and modification time as immediate metadata. It needs no
// external tooling, but IsContentRequired reports true: the path itself
// must exist on disk.
type FileStat struct {
	target string
}

var _ extractor.Extractor = (*FileStat)(nil)

// NewFileStat constructs a FileStat extractor bound to target, matching
// extractor/registry.Constructor's signature so it can be registered
// directly.
func NewFileStat(target string) (extractor.Extractor, error) {
	return &FileStat{target: target}, nil
}

func (e *FileStat) Kind() extractor.Kind {
	return extractor.DatasetMetadataExtractor
}

func (e *FileStat) IsContentRequired() bool {
	return true
}

func (e *FileStat) Extract(ctx context.Context, sink io.Writer) (*extractor.Result, error) {
	info, err := os.Stat(e.target)
	if err != nil {
		return nil, err
	}
	return &extractor.Result{
		Category: extractor.ImmediateOutput,
		Immediate: map[string]any{
			"path":     e.target,
			"size":     info.Size(),
			"mode":     info.Mode().String(),
			"mod_time": info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			"is_dir":   info.IsDir(),
		},
	}, nil
}
