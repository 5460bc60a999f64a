package graph

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/metalad-go/metalad/backend"
)

type fileTreeDTO struct {
	Entries map[Path]backend.BlobID `json:"entries"`
}

// FileTree maps an intra-dataset file Path to its Metadata (spec.md §3).
// Keys are unique.
type FileTree struct {
	entries map[Path]*Connector[*Metadata]
}

// NewFileTree returns an empty FileTree.
func NewFileTree() *FileTree {
	return &FileTree{entries: make(map[Path]*Connector[*Metadata])}
}

// Paths returns the tree's keys in sorted order.
func (t *FileTree) Paths() []Path {
	out := make([]Path, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the Metadata at path, creating an empty one on first use.
func (t *FileTree) Get(ctx context.Context, b backend.Backend, path Path) (*Metadata, error) {
	conn, ok := t.entries[path]
	if !ok {
		conn = NewConnector[*Metadata](NewMetadata())
		t.entries[path] = conn
	}
	return conn.Get(ctx, b)
}

// Contains reports whether path has an entry.
func (t *FileTree) Contains(path Path) bool {
	_, ok := t.entries[path]
	return ok
}

// DeepCopy walks the tree's logical structure, producing an independent,
// unsaved copy. File paths are intra-dataset and are never rewritten by
// aggregation (only DatasetTree keys and VersionList paths are
// realm-relative, per invariant 5).
func (t *FileTree) DeepCopy(ctx context.Context, src backend.Backend) (*FileTree, error) {
	out := NewFileTree()
	for _, p := range t.Paths() {
		md, err := t.entries[p].Get(ctx, src)
		if err != nil {
			return nil, err
		}
		out.entries[p] = NewConnector[*Metadata](md.Clone())
	}
	return out, nil
}

func (t *FileTree) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := fileTreeDTO{Entries: make(map[Path]backend.BlobID, len(t.entries))}
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

func (t *FileTree) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto fileTreeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	t.entries = make(map[Path]*Connector[*Metadata], len(dto.Entries))
	for p, blobID := range dto.Entries {
		t.entries[p] = NewUnloadedConnector[*Metadata](blobID, func() *Metadata { return NewMetadata() })
	}
	return nil
}
