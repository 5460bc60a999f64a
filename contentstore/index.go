// Package contentstore implements the indexed content store: an
// append-only blob file plus a JSON sidecar index keyed by (path, format),
// used for cheap bulk storage of many small metadata blobs (spec.md §4.B).
// Grounded on datalad-metalad's SimpleFileIndex, generalized to the
// (path, format) -> region schema spec.md §4.B describes.
package contentstore

import (
	"encoding/json"

	"github.com/metalad-go/metalad/merrors"
)

// IndexVersion is the on-disk index format tag (spec.md §6).
const IndexVersion = "SimpleFileIndex-0.1"

// region is a byte range within the content file.
type region struct {
	Offset uint64
	Size   uint64
}

// MarshalJSON encodes a region as the [offset, size] pair the on-disk
// format uses.
func (r region) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{r.Offset, r.Size})
}

// UnmarshalJSON decodes a region from an [offset, size] pair.
func (r *region) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Offset, r.Size = pair[0], pair[1]
	return nil
}

// indexFile is the exact on-disk shape of index.json (spec.md §6).
type indexFile struct {
	Version        string                     `json:"version"`
	Paths          map[string]map[string]region `json:"paths"`
	DatasetPaths   map[string]json.RawMessage `json:"dataset_paths"`
	DeletedRegions []region                   `json:"deleted_regions"`
}

func newIndexFile() *indexFile {
	return &indexFile{
		Version:        IndexVersion,
		Paths:          map[string]map[string]region{},
		DatasetPaths:   map[string]json.RawMessage{},
		DeletedRegions: []region{},
	}
}

func parseIndexFile(data []byte) (*indexFile, error) {
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	if idx.Version != IndexVersion {
		return nil, merrors.VersionMismatchError{Expected: IndexVersion, Got: idx.Version}
	}
	if idx.Paths == nil {
		idx.Paths = map[string]map[string]region{}
	}
	if idx.DatasetPaths == nil {
		idx.DatasetPaths = map[string]json.RawMessage{}
	}
	return &idx, nil
}
