// Package vector holds the backend-neutral upload contract: the records sent
// to a vector store, the Backend interface every store adapter implements and
// the Dispatcher that routes a batch to the adapter its metadata names.
package vector

import (
	"context"
	"fmt"
	"strings"

	"vectorflow/apps/worker/internal/ids"
)

type BackendType string

const (
	Pinecone BackendType = "PINECONE"
	Qdrant   BackendType = "QDRANT"
	Weaviate BackendType = "WEAVIATE"
)

// ParseBackendType accepts any casing of a known backend name.
func ParseBackendType(s string) (BackendType, error) {
	switch t := BackendType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Pinecone, Qdrant, Weaviate:
		return t, nil
	default:
		return "", fmt.Errorf("unknown vector store type %q", s)
	}
}

const (
	PayloadSourceText     = "source_text"
	PayloadSourceDocument = "source_document"
)

// Metadata identifies where a batch is written.
type Metadata struct {
	Type        BackendType `json:"vector_db_type"`
	Environment string      `json:"environment"`
	IndexName   string      `json:"index_name"`
}

// Chunk is one (text, embedding) pair handed over by the queue.
type Chunk struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Record is the backend-neutral form of a chunk, keyed by a deterministic id.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Target names the batch a set of chunks belongs to.
type Target struct {
	JobID          string
	BatchID        string
	SourceFilename string
}

// Settings is the immutable configuration shared by every backend adapter.
type Settings struct {
	APIKey        string
	LocalEndpoint string
	BatchSize     int
}

// IsLocal reports whether environment selects the unauthenticated local mode.
func (s Settings) IsLocal(environment string) bool {
	return s.LocalEndpoint != "" && environment == s.LocalEndpoint
}

// Backend writes records to one kind of vector store.
// Upload returns the number of vectors the store confirmed, or an *UploadError.
type Backend interface {
	Type() BackendType
	Upload(ctx context.Context, records []Record, meta Metadata) (int, error)
}

// BuildRecords converts chunks into records in their original order.
func BuildRecords(chunks []Chunk, target Target) ([]Record, error) {
	records := make([]Record, 0, len(chunks))
	for i, c := range chunks {
		id, err := ids.Generate(target.JobID, target.BatchID, i)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			ID:     id,
			Vector: c.Vector,
			Payload: map[string]string{
				PayloadSourceText:     c.Text,
				PayloadSourceDocument: target.SourceFilename,
			},
		})
	}
	return records, nil
}
