package driven

import (
	"context"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
)

// VectorStats summarises the state of the vector index.
type VectorStats struct {
	// TotalVectors is the number of stored vectors.
	TotalVectors int `json:"totalVectors"`

	// Dimension is the index dimensionality.
	Dimension int `json:"dimension"`
}

// VectorStore persists, queries and deletes embedding records.
//
// Implementations hold a long-lived, lazily-initialised connection and
// index handle shared across overlapping ingestion and query requests;
// first use creates the index with the embedding dimensionality and a
// cosine metric if it does not exist. Failures on any operation are
// wrapped in domain errors, never silently swallowed.
type VectorStore interface {
	// Upsert inserts or updates vectors keyed by chunk ID, submitting
	// provider-sized sub-batches sequentially.
	Upsert(ctx context.Context, vectors []domain.EmbeddingVector) error

	// Query returns the topK nearest vectors by cosine similarity,
	// optionally constrained by a metadata filter, with metadata
	// attached to each match.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.RetrievalMatch, error)

	// DeleteByFileID removes all vectors whose metadata fileId equals
	// the given id. This is the cleanup mechanism for a superseded
	// document.
	DeleteByFileID(ctx context.Context, fileID string) error

	// Stats returns index statistics.
	Stats(ctx context.Context) (*VectorStats, error)
}
