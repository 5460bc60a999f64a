package contentstore

import (
	"io"

	"github.com/metalad-go/metalad/graph"
	"github.com/metalad-go/metalad/merrors"
)

// Join merges two content stores into a new one rooted at outDir: every
// path from left is mirrored under leftPrefix, every path from right under
// rightPrefix, with empty-prefix components collapsed the same way
// graph.JoinPath collapses dataset-tree paths. The joined content file is
// the concatenation left||right -- left's regions keep their offsets,
// right's are shifted by len(left)'s content. Grounded on
// simplefile_index.py's join(), generalized to the (path, format) schema
// spec.md §4.B describes (spec.md §4.B: "creates a new store whose blob
// file is the concatenation left||right...").
//
// Preconditions: left and right are distinct stores with distinct
// prefixes, and outDir differs from both inputs' directories. Violating
// any of these is a caller bug, not a data condition, so it is reported as
// merrors.InvalidArgumentError.
func Join(outDir, leftPrefix string, left *Store, rightPrefix string, right *Store) (*Store, error) {
	if left == right {
		return nil, merrors.InvalidArgumentError{Message: "join: left and right must be distinct stores"}
	}
	if leftPrefix == rightPrefix {
		return nil, merrors.InvalidArgumentError{Message: "join: left and right prefixes must be distinct"}
	}
	if outDir == left.dir || outDir == right.dir {
		return nil, merrors.InvalidArgumentError{Message: "join: outDir must differ from both input stores"}
	}

	out, err := Create(outDir)
	if err != nil {
		return nil, err
	}

	left.mu.Lock()
	right.mu.Lock()
	defer right.mu.Unlock()
	defer left.mu.Unlock()

	if _, err := io.Copy(out.content, io.NewSectionReader(left.content, 0, int64(left.contentSize))); err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Join", Err: err}
	}
	if _, err := io.Copy(out.content, io.NewSectionReader(right.content, 0, int64(right.contentSize))); err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Join", Err: err}
	}
	out.contentSize = left.contentSize + right.contentSize

	mergePaths(out, left, leftPrefix, 0)
	mergePaths(out, right, rightPrefix, left.contentSize)

	for _, r := range left.idx.DeletedRegions {
		out.idx.DeletedRegions = append(out.idx.DeletedRegions, r)
	}
	for _, r := range right.idx.DeletedRegions {
		out.idx.DeletedRegions = append(out.idx.DeletedRegions, region{Offset: r.Offset + left.contentSize, Size: r.Size})
	}

	out.dirty = true
	return out, nil
}

func mergePaths(out, src *Store, prefix string, shift uint64) {
	for path, formats := range src.idx.Paths {
		newPath := string(graph.JoinPath(graph.Path(prefix), graph.Path(path)))
		newFormats := make(map[string]region, len(formats))
		for format, r := range formats {
			newFormats[format] = region{Offset: r.Offset + shift, Size: r.Size}
		}
		out.idx.Paths[newPath] = newFormats
		if meta, ok := src.idx.DatasetPaths[path]; ok {
			out.idx.DatasetPaths[newPath] = meta
		}
	}
}
