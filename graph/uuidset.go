package graph

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/metalad-go/metalad/backend"
)

type uuidSetDTO struct {
	Entries map[UUID]backend.BlobID `json:"entries"`
}

// UUIDSet maps UUID to VersionList (spec.md §3). One per realm.
type UUIDSet struct {
	entries map[UUID]*Connector[*VersionList]
}

// NewUUIDSet returns an empty UUIDSet.
func NewUUIDSet() *UUIDSet {
	return &UUIDSet{entries: make(map[UUID]*Connector[*VersionList])}
}

// UUIDs returns the set's keys in sorted order.
func (s *UUIDSet) UUIDs() []UUID {
	out := make([]UUID, 0, len(s.entries))
	for u := range s.entries {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether uuid has a VersionList.
func (s *UUIDSet) Contains(uuid UUID) bool {
	_, ok := s.entries[uuid]
	return ok
}

// GetOrCreateVersionList returns the VersionList for uuid, creating an
// empty one if absent.
func (s *UUIDSet) GetOrCreateVersionList(ctx context.Context, b backend.Backend, uuid UUID) (*VersionList, error) {
	conn, ok := s.entries[uuid]
	if !ok {
		conn = NewConnector[*VersionList](NewVersionList())
		s.entries[uuid] = conn
	}
	return conn.Get(ctx, b)
}

// GetVersionList returns the VersionList for uuid, if any.
func (s *UUIDSet) GetVersionList(ctx context.Context, b backend.Backend, uuid UUID) (*VersionList, bool, error) {
	conn, ok := s.entries[uuid]
	if !ok {
		return nil, false, nil
	}
	vl, err := conn.Get(ctx, b)
	if err != nil {
		return nil, false, err
	}
	return vl, true, nil
}

// SetVersionList installs vl as the VersionList for uuid, replacing any
// prior one.
func (s *UUIDSet) SetVersionList(uuid UUID, vl *VersionList) {
	s.entries[uuid] = NewConnector[*VersionList](vl)
}

// UngetVersionList evicts the VersionList loaded for uuid, persisting it
// first; used by the aggregation loop to keep memory bounded by the
// largest single leaf (spec.md §5).
func (s *UUIDSet) UngetVersionList(ctx context.Context, b backend.Backend, uuid UUID) error {
	conn, ok := s.entries[uuid]
	if !ok {
		return nil
	}
	return conn.Unget(ctx, b)
}

func (s *UUIDSet) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := uuidSetDTO{Entries: make(map[UUID]backend.BlobID, len(s.entries))}
	for uuid, conn := range s.entries {
		id, err := conn.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.Entries[uuid] = id
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (s *UUIDSet) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto uuidSetDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	s.entries = make(map[UUID]*Connector[*VersionList], len(dto.Entries))
	for uuid, blobID := range dto.Entries {
		s.entries[uuid] = NewUnloadedConnector[*VersionList](blobID, func() *VersionList { return NewVersionList() })
	}
	return nil
}

// Save persists the whole UUIDSet and stores its root id under the realm's
// well-known "uuid-set" ref.
func (s *UUIDSet) Save(ctx context.Context, b backend.Backend, realm backend.RealmID) (backend.BlobID, error) {
	id, err := s.SaveTo(ctx, b)
	if err != nil {
		return "", err
	}
	if err := b.PutRef(ctx, realm, RefUUIDSet, id); err != nil {
		return "", err
	}
	return id, nil
}
