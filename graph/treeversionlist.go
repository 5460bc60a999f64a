package graph

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/metalad-go/metalad/backend"
)

type treeVersionListEntryDTO struct {
	Timestamp Timestamp      `json:"timestamp"`
	Tree      backend.BlobID `json:"tree"`
}

type treeVersionListDTO struct {
	Entries map[Version]treeVersionListEntryDTO `json:"entries"`
}

// TreeVersionList maps Version to (Timestamp, DatasetTree) -- spec.md §3.
// One per realm. Keys unique, order irrelevant semantically; enumeration is
// sorted for determinism.
type TreeVersionList struct {
	entries map[Version]*treeVersionListEntry
}

type treeVersionListEntry struct {
	timestamp Timestamp
	tree      *Connector[*DatasetTree]
}

// NewTreeVersionList returns an empty TreeVersionList.
func NewTreeVersionList() *TreeVersionList {
	return &TreeVersionList{entries: make(map[Version]*treeVersionListEntry)}
}

// Versions returns the list's keys in sorted order.
func (l *TreeVersionList) Versions() []Version {
	out := make([]Version, 0, len(l.entries))
	for v := range l.entries {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether version has a DatasetTree.
func (l *TreeVersionList) Contains(version Version) bool {
	_, ok := l.entries[version]
	return ok
}

// GetOrCreateDatasetTree returns the DatasetTree for version, creating an
// empty one (with the given timestamp) if absent.
func (l *TreeVersionList) GetOrCreateDatasetTree(ctx context.Context, b backend.Backend, version Version, timestampIfNew Timestamp) (*DatasetTree, error) {
	e, ok := l.entries[version]
	if !ok {
		e = &treeVersionListEntry{timestamp: timestampIfNew, tree: NewConnector[*DatasetTree](NewDatasetTree())}
		l.entries[version] = e
	}
	return e.tree.Get(ctx, b)
}

// GetDatasetTree returns the (timestamp, DatasetTree) for version, if any.
func (l *TreeVersionList) GetDatasetTree(ctx context.Context, b backend.Backend, version Version) (Timestamp, *DatasetTree, bool, error) {
	e, ok := l.entries[version]
	if !ok {
		return "", nil, false, nil
	}
	tree, err := e.tree.Get(ctx, b)
	if err != nil {
		return "", nil, false, err
	}
	return e.timestamp, tree, true, nil
}

// SetDatasetTree installs tree for version with the given timestamp,
// replacing any prior entry.
func (l *TreeVersionList) SetDatasetTree(version Version, timestamp Timestamp, tree *DatasetTree) {
	l.entries[version] = &treeVersionListEntry{timestamp: timestamp, tree: NewConnector[*DatasetTree](tree)}
}

// UngetDatasetTree evicts the DatasetTree loaded for version, persisting it
// first.
func (l *TreeVersionList) UngetDatasetTree(ctx context.Context, b backend.Backend, version Version) error {
	e, ok := l.entries[version]
	if !ok {
		return nil
	}
	return e.tree.Unget(ctx, b)
}

func (l *TreeVersionList) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := treeVersionListDTO{Entries: make(map[Version]treeVersionListEntryDTO, len(l.entries))}
	for v, e := range l.entries {
		id, err := e.tree.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.Entries[v] = treeVersionListEntryDTO{Timestamp: e.timestamp, Tree: id}
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (l *TreeVersionList) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto treeVersionListDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	l.entries = make(map[Version]*treeVersionListEntry, len(dto.Entries))
	for v, e := range dto.Entries {
		l.entries[v] = &treeVersionListEntry{
			timestamp: e.Timestamp,
			tree:      NewUnloadedConnector[*DatasetTree](e.Tree, func() *DatasetTree { return NewDatasetTree() }),
		}
	}
	return nil
}

// Save persists the whole TreeVersionList and stores its root id under the
// realm's well-known "tree-version-list" ref.
func (l *TreeVersionList) Save(ctx context.Context, b backend.Backend, realm backend.RealmID) (backend.BlobID, error) {
	id, err := l.SaveTo(ctx, b)
	if err != nil {
		return "", err
	}
	if err := b.PutRef(ctx, realm, RefTreeVersionList, id); err != nil {
		return "", err
	}
	return id, nil
}
