package graph

import (
	"context"
	"encoding/json"

	"github.com/metalad-go/metalad/backend"
)

type mrrDTO struct {
	DatasetUUID          UUID           `json:"dataset_uuid"`
	DatasetVersion       Version        `json:"dataset_version"`
	DatasetLevelMetadata backend.BlobID `json:"dataset_level_metadata,omitempty"`
	FileTree             backend.BlobID `json:"file_tree,omitempty"`
}

// MetadataRootRecord (MRR) is the tuple (dataset_uuid, dataset_version,
// dataset_level_metadata?, file_tree?) from spec.md §3. Both sub-objects
// are created on first use.
type MetadataRootRecord struct {
	datasetUUID          UUID
	datasetVersion       Version
	datasetLevelMetadata *Connector[*Metadata]
	fileTree             *Connector[*FileTree]
}

// NewMetadataRootRecord returns an MRR bound to (uuid, version), with both
// sub-objects absent until first accessed.
func NewMetadataRootRecord(uuid UUID, version Version) *MetadataRootRecord {
	return &MetadataRootRecord{datasetUUID: uuid, datasetVersion: version}
}

func (m *MetadataRootRecord) DatasetUUID() UUID       { return m.datasetUUID }
func (m *MetadataRootRecord) DatasetVersion() Version { return m.datasetVersion }

// DatasetLevelMetadata returns the dataset-level Metadata, creating an
// empty one on first use.
func (m *MetadataRootRecord) DatasetLevelMetadata(ctx context.Context, b backend.Backend) (*Metadata, error) {
	if m.datasetLevelMetadata == nil {
		m.datasetLevelMetadata = NewConnector[*Metadata](NewMetadata())
	}
	return m.datasetLevelMetadata.Get(ctx, b)
}

// FileTree returns the MRR's FileTree, creating an empty one on first use.
func (m *MetadataRootRecord) FileTree(ctx context.Context, b backend.Backend) (*FileTree, error) {
	if m.fileTree == nil {
		m.fileTree = NewConnector[*FileTree](NewFileTree())
	}
	return m.fileTree.Get(ctx, b)
}

// DeepCopy produces an independent, unsaved copy bound to the same
// (uuid, version).
func (m *MetadataRootRecord) DeepCopy(ctx context.Context, src backend.Backend) (*MetadataRootRecord, error) {
	out := NewMetadataRootRecord(m.datasetUUID, m.datasetVersion)
	if m.datasetLevelMetadata != nil {
		md, err := m.datasetLevelMetadata.Get(ctx, src)
		if err != nil {
			return nil, err
		}
		out.datasetLevelMetadata = NewConnector[*Metadata](md.Clone())
	}
	if m.fileTree != nil {
		ft, err := m.fileTree.Get(ctx, src)
		if err != nil {
			return nil, err
		}
		newFT, err := ft.DeepCopy(ctx, src)
		if err != nil {
			return nil, err
		}
		out.fileTree = NewConnector[*FileTree](newFT)
	}
	return out, nil
}

func (m *MetadataRootRecord) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	dto := mrrDTO{DatasetUUID: m.datasetUUID, DatasetVersion: m.datasetVersion}
	if m.datasetLevelMetadata != nil {
		id, err := m.datasetLevelMetadata.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.DatasetLevelMetadata = id
	}
	if m.fileTree != nil {
		id, err := m.fileTree.Save(ctx, b)
		if err != nil {
			return "", err
		}
		dto.FileTree = id
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (m *MetadataRootRecord) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto mrrDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	m.datasetUUID = dto.DatasetUUID
	m.datasetVersion = dto.DatasetVersion
	if dto.DatasetLevelMetadata != "" {
		m.datasetLevelMetadata = NewUnloadedConnector[*Metadata](dto.DatasetLevelMetadata, func() *Metadata { return NewMetadata() })
	}
	if dto.FileTree != "" {
		m.fileTree = NewUnloadedConnector[*FileTree](dto.FileTree, func() *FileTree { return NewFileTree() })
	}
	return nil
}
