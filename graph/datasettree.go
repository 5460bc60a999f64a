package graph

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/merrors"
)

type datasetTreeDTO struct {
	Entries map[Path]backend.BlobID `json:"entries"`
}

// DatasetTree is an ordered tree keyed by Path, whose leaves carry a
// MetadataRootRecord (spec.md §3). Ordering is canonical (sorted by path)
// wherever entries are enumerated, for deterministic serialization.
type DatasetTree struct {
	entries map[Path]*Connector[*MetadataRootRecord]
}

// NewDatasetTree returns an empty DatasetTree.
func NewDatasetTree() *DatasetTree {
	return &DatasetTree{entries: make(map[Path]*Connector[*MetadataRootRecord])}
}

// Paths returns the tree's keys in sorted order.
func (t *DatasetTree) Paths() []Path {
	out := make([]Path, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether path has an MRR (exact match, not subtree).
func (t *DatasetTree) Contains(path Path) bool {
	_, ok := t.entries[path]
	return ok
}

// Add inserts mrr at path. Rejected with merrors.PathAlreadyExistsError if
// path already has an MRR, per invariant 4 -- callers must DeleteSubtree
// first.
func (t *DatasetTree) Add(path Path, mrr *MetadataRootRecord) error {
	if t.Contains(path) {
		return merrors.PathAlreadyExistsError{Path: string(path)}
	}
	t.entries[path] = NewConnector[*MetadataRootRecord](mrr)
	return nil
}

// GetOrCreate returns the MRR at path, creating one bound to (uuid,
// version) if absent.
func (t *DatasetTree) GetOrCreate(ctx context.Context, b backend.Backend, path Path, uuid UUID, version Version) (*MetadataRootRecord, error) {
	conn, ok := t.entries[path]
	if !ok {
		conn = NewConnector[*MetadataRootRecord](NewMetadataRootRecord(uuid, version))
		t.entries[path] = conn
	}
	return conn.Get(ctx, b)
}

// Get returns the MRR at path, if any.
func (t *DatasetTree) Get(ctx context.Context, b backend.Backend, path Path) (*MetadataRootRecord, bool, error) {
	conn, ok := t.entries[path]
	if !ok {
		return nil, false, nil
	}
	mrr, err := conn.Get(ctx, b)
	if err != nil {
		return nil, false, err
	}
	return mrr, true, nil
}

// DeleteSubtree removes path and every entry within the subtree rooted at
// path.
func (t *DatasetTree) DeleteSubtree(path Path) {
	for p := range t.entries {
		if p.HasPrefix(path) {
			delete(t.entries, p)
		}
	}
}

// AddSubtree merges other into t under prefix. Per §4.C, the caller is
// responsible for having called DeleteSubtree(prefix) first if that would
// collide; AddSubtree itself reports a collision rather than silently
// overwriting, so a caller that skipped the precondition check fails loudly
// instead of corrupting the tree.
func (t *DatasetTree) AddSubtree(other *DatasetTree, prefix Path) error {
	for _, p := range other.Paths() {
		newPath := JoinPath(prefix, p)
		if t.Contains(newPath) {
			return merrors.PathAlreadyExistsError{Path: string(newPath)}
		}
		t.entries[newPath] = other.entries[p]
	}
	return nil
}

// DeepCopy walks the tree's logical structure, rewriting every key to
// JoinPath(pathPrefix, key) (invariant 5), producing an independent, unsaved
// copy.
func (t *DatasetTree) DeepCopy(ctx context.Context, src backend.Backend, pathPrefix Path) (*DatasetTree, error) {
	out := NewDatasetTree()
	for _, p := range t.Paths() {
		mrr, err := t.entries[p].Get(ctx, src)
		if err != nil {
			return nil, err
		}
		newMRR, err := mrr.DeepCopy(ctx, src)
		if err != nil {
			return nil, err
		}
		out.entries[JoinPath(pathPrefix, p)] = NewConnector[*MetadataRootRecord](newMRR)
	}
	return out, nil
}

func (t *DatasetTree) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := datasetTreeDTO{Entries: make(map[Path]backend.BlobID, len(t.entries))}
	for p, conn := range t.entries {
		id, err := conn.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.Entries[p] = id
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (t *DatasetTree) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto datasetTreeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	t.entries = make(map[Path]*Connector[*MetadataRootRecord], len(dto.Entries))
	for p, blobID := range dto.Entries {
		t.entries[p] = NewUnloadedConnector[*MetadataRootRecord](blobID, func() *MetadataRootRecord { return &MetadataRootRecord{} })
	}
	return nil
}
