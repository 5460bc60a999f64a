package graph

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/metalad-go/metalad/backend"
)

type versionListEntryDTO struct {
	Timestamp Timestamp      `json:"timestamp"`
	Path      Path           `json:"path"`
	MRR       backend.BlobID `json:"mrr"`
}

type versionListDTO struct {
	Entries map[Version]versionListEntryDTO `json:"entries"`
}

// VersionList maps Version to (Timestamp, Path, MetadataRootRecord) --
// spec.md §3. Path is the intra-realm path at which this dataset instance
// lives (invariant 3).
type VersionList struct {
	entries map[Version]*versionListEntry
}

type versionListEntry struct {
	timestamp Timestamp
	path      Path
	mrr       *Connector[*MetadataRootRecord]
}

// NewVersionList returns an empty VersionList.
func NewVersionList() *VersionList {
	return &VersionList{entries: make(map[Version]*versionListEntry)}
}

// Versions returns the list's keys in sorted order.
func (vl *VersionList) Versions() []Version {
	out := make([]Version, 0, len(vl.entries))
	for v := range vl.entries {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the (timestamp, path, MRR) triple recorded for version.
func (vl *VersionList) Get(ctx context.Context, b backend.Backend, version Version) (Timestamp, Path, *MetadataRootRecord, bool, error) {
	e, ok := vl.entries[version]
	if !ok {
		return "", "", nil, false, nil
	}
	mrr, err := e.mrr.Get(ctx, b)
	if err != nil {
		return "", "", nil, false, err
	}
	return e.timestamp, e.path, mrr, true, nil
}

// Set records (timestamp, path, mrr) for version, replacing any prior entry.
func (vl *VersionList) Set(version Version, timestamp Timestamp, path Path, mrr *MetadataRootRecord) {
	vl.entries[version] = &versionListEntry{
		timestamp: timestamp,
		path:      path,
		mrr:       NewConnector[*MetadataRootRecord](mrr),
	}
}

// SetConnector records an entry whose MRR connector is already constructed
// (used when grafting a deep-copied MRR so the copy's loaded/unloaded state
// is preserved).
func (vl *VersionList) SetConnector(version Version, timestamp Timestamp, path Path, conn *Connector[*MetadataRootRecord]) {
	vl.entries[version] = &versionListEntry{timestamp: timestamp, path: path, mrr: conn}
}

// Unget evicts the MRR loaded for version, persisting it first.
func (vl *VersionList) Unget(ctx context.Context, b backend.Backend, version Version) error {
	e, ok := vl.entries[version]
	if !ok {
		return nil
	}
	return e.mrr.Unget(ctx, b)
}

// DeepCopy walks the list's logical structure, rewriting every entry's Path
// to JoinPath(pathPrefix, path), producing an independent, unsaved copy
// (invariant 5, used by aggregate.copyUUIDSet when a UUID is new to the
// destination).
func (vl *VersionList) DeepCopy(ctx context.Context, src backend.Backend, pathPrefix Path) (*VersionList, error) {
	out := NewVersionList()
	for _, v := range vl.Versions() {
		e := vl.entries[v]
		mrr, err := e.mrr.Get(ctx, src)
		if err != nil {
			return nil, err
		}
		newMRR, err := mrr.DeepCopy(ctx, src)
		if err != nil {
			return nil, err
		}
		out.entries[v] = &versionListEntry{
			timestamp: e.timestamp,
			path:      JoinPath(pathPrefix, e.path),
			mrr:       NewConnector[*MetadataRootRecord](newMRR),
		}
	}
	return out, nil
}

func (vl *VersionList) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := versionListDTO{Entries: make(map[Version]versionListEntryDTO, len(vl.entries))}
	for v, e := range vl.entries {
		id, err := e.mrr.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.Entries[v] = versionListEntryDTO{Timestamp: e.timestamp, Path: e.path, MRR: id}
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (vl *VersionList) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto versionListDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	vl.entries = make(map[Version]*versionListEntry, len(dto.Entries))
	for v, e := range dto.Entries {
		vl.entries[v] = &versionListEntry{
			timestamp: e.Timestamp,
			path:      e.Path,
			mrr:       NewUnloadedConnector[*MetadataRootRecord](e.MRR, func() *MetadataRootRecord { return &MetadataRootRecord{} }),
		}
	}
	return nil
}
