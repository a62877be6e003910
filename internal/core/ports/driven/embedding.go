package driven

import (
	"context"
	"time"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
)

// EmbeddingRole distinguishes the two embedding paths. Document and
// query embeddings may live in asymmetric representation spaces per the
// provider's contract, so the role matters for retrieval quality.
type EmbeddingRole string

const (
	// RoleDocument embeds chunk text for storage.
	RoleDocument EmbeddingRole = "document"

	// RoleQuery embeds a user question for retrieval.
	RoleQuery EmbeddingRole = "query"
)

// EmbeddingService generates fixed-dimension vector embeddings from text.
//
// Every successful call returns a vector of exactly Dimensions() values.
// A provider returning no or fewer values is a failure for that model,
// never a valid short vector.
type EmbeddingService interface {
	// Embed generates a vector for the given text and role, trying the
	// configured models in order and falling back on failure.
	Embed(ctx context.Context, text string, role EmbeddingRole) ([]float32, error)

	// EmbedWithRetry wraps Embed with exponential backoff
	// (baseDelay * 2^attempt) for transient failures.
	EmbedWithRetry(ctx context.Context, text string, role EmbeddingRole, maxRetries int, baseDelay time.Duration) ([]float32, error)

	// EmbedBatch embeds chunks strictly in order with a short spacing
	// between calls to respect provider rate limits. It reports
	// (processed, total) after each success. A failure for any single
	// chunk aborts the whole batch; no partial result is returned.
	EmbedBatch(ctx context.Context, chunks []domain.TextChunk, onProgress func(processed, total int)) (map[string][]float32, error)

	// Dimensions returns the contracted embedding vector size.
	Dimensions() int

	// Close releases resources.
	Close() error
}
