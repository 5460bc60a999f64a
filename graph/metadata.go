package graph

import (
	"context"
	"encoding/json"

	"github.com/metalad-go/metalad/backend"
)

// PayloadKind distinguishes an ExtractorRun's inline payload from a
// reference to a blob holding the extractor's output.
type PayloadKind string

const (
	// PayloadImmediate carries the extractor's result inline, as a raw JSON
	// value.
	PayloadImmediate PayloadKind = "immediate"
	// PayloadBlob carries a reference to a blob in the backend holding the
	// bytes an extractor wrote to its sink.
	PayloadBlob PayloadKind = "blob"
)

// Payload is an ExtractorRun's output: either an inline ImmediateValue, or a
// BlobRef (spec.md §3's "ExtractorRun: ... payload: ImmediateValue |
// BlobRef").
type Payload struct {
	Type     PayloadKind     `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Location backend.BlobID  `json:"location,omitempty"`
}

// ImmediatePayload wraps an inline value, marshaled as JSON.
func ImmediatePayload(value any) (Payload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Type: PayloadImmediate, Value: raw}, nil
}

// BlobPayload wraps a reference to a blob holding the extractor's output,
// matching scenario S2's wire shape {"type":"blob","location":<id>}.
func BlobPayload(id backend.BlobID) Payload {
	return Payload{Type: PayloadBlob, Location: id}
}

// ExtractorRun is a single extraction event (spec.md §3).
type ExtractorRun struct {
	Timestamp            Timestamp         `json:"timestamp"`
	ExtractorName        string            `json:"extractor_name"`
	AgentName            string            `json:"agent_name"`
	AgentEmail           string            `json:"agent_email"`
	ExtractorVersion     string            `json:"extractor_version"`
	ExtractionParameters map[string]string `json:"extraction_parameters,omitempty"`
	Payload              Payload           `json:"payload"`
}

type metadataDTO struct {
	Runs []ExtractorRun `json:"runs"`
}

// Metadata is an append-only sequence of ExtractorRun records (spec.md §3).
// Appending is its only mutation.
type Metadata struct {
	runs []ExtractorRun
}

// NewMetadata returns an empty Metadata record.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// AddExtractorRun appends a run. It never rejects (spec.md §4.C).
func (m *Metadata) AddExtractorRun(run ExtractorRun) {
	m.runs = append(m.runs, run)
}

// Runs returns a copy of the recorded runs, in append order.
func (m *Metadata) Runs() []ExtractorRun {
	out := make([]ExtractorRun, len(m.runs))
	copy(out, m.runs)
	return out
}

// Clone returns an independent copy, used by MetadataRootRecord.DeepCopy.
func (m *Metadata) Clone() *Metadata {
	return &Metadata{runs: m.Runs()}
}

func (m *Metadata) SaveTo(ctx context.Context, b backend.Backend) (backend.BlobID, error) {
	data, err := json.Marshal(metadataDTO{Runs: m.runs})
	if err != nil {
		return "", err
	}
	return b.Put(ctx, data)
}

func (m *Metadata) LoadFrom(ctx context.Context, b backend.Backend, id backend.BlobID) error {
	data, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	var dto metadataDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	m.runs = dto.Runs
	return nil
}
