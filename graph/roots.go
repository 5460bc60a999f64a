package graph

import (
	"context"

	"github.com/metalad-go/metalad/backend"
)

// Well-known ref names a realm's root objects are looked up by (spec.md
// §6.2: "persisted root objects are looked up by a pair of well-known
// names within a realm directory").
const (
	RefTreeVersionList = "tree-version-list"
	RefUUIDSet         = "uuid-set"
)

// LoadOrCreateRoots resolves a realm's TreeVersionList and UUIDSet roots,
// creating empty ones if the realm has never been saved before (spec.md
// §4.E step 2 / aggregate.py's get_top_level_metadata_objects).
func LoadOrCreateRoots(ctx context.Context, b backend.Backend, realm backend.RealmID) (*TreeVersionList, *UUIDSet, error) {
	tvl, err := loadOrCreateTreeVersionList(ctx, b, realm)
	if err != nil {
		return nil, nil, err
	}
	us, err := loadOrCreateUUIDSet(ctx, b, realm)
	if err != nil {
		return nil, nil, err
	}
	return tvl, us, nil
}

func loadOrCreateTreeVersionList(ctx context.Context, b backend.Backend, realm backend.RealmID) (*TreeVersionList, error) {
	id, ok, err := b.GetRef(ctx, realm, RefTreeVersionList)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewTreeVersionList(), nil
	}
	tvl := NewTreeVersionList()
	if err := tvl.LoadFrom(ctx, b, id); err != nil {
		return nil, err
	}
	return tvl, nil
}

func loadOrCreateUUIDSet(ctx context.Context, b backend.Backend, realm backend.RealmID) (*UUIDSet, error) {
	id, ok, err := b.GetRef(ctx, realm, RefUUIDSet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewUUIDSet(), nil
	}
	us := NewUUIDSet()
	if err := us.LoadFrom(ctx, b, id); err != nil {
		return nil, err
	}
	return us, nil
}

// LoadRoots resolves a realm's roots without creating them, reporting
// whether both were found -- used by aggregation, which must distinguish
// "no metadata model found here" (a warning, item skipped) from "empty
// model" (spec.md §4.F failure semantics).
func LoadRoots(ctx context.Context, b backend.Backend, realm backend.RealmID) (*TreeVersionList, *UUIDSet, bool, error) {
	tvlID, tvlOK, err := b.GetRef(ctx, realm, RefTreeVersionList)
	if err != nil {
		return nil, nil, false, err
	}
	usID, usOK, err := b.GetRef(ctx, realm, RefUUIDSet)
	if err != nil {
		return nil, nil, false, err
	}
	if !tvlOK || !usOK {
		return nil, nil, false, nil
	}
	tvl := NewTreeVersionList()
	if err := tvl.LoadFrom(ctx, b, tvlID); err != nil {
		return nil, nil, false, err
	}
	us := NewUUIDSet()
	if err := us.LoadFrom(ctx, b, usID); err != nil {
		return nil, nil, false, err
	}
	return tvl, us, true, nil
}
