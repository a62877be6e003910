// Package driving provides interfaces for the application's entry
// points (primary/inbound ports). The HTTP adapter depends on these
// rather than on concrete services.
package driving

import (
	"context"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

// Ingestor runs the document ingestion pipeline over a drive folder.
type Ingestor interface {
	// ProcessFolder ingests every file in the folder: extraction,
	// chunking, embedding and a single final storage phase. It returns
	// the final progress snapshot and a human-readable summary. A
	// per-file failure is recovered and the run continues; a folder
	// listing or storage failure aborts the run with an error wrapping
	// domain.ErrPipelineFatal.
	ProcessFolder(ctx context.Context, folderID string) (*domain.ProcessingProgress, string, error)
}

// Chat answers a user message grounded in retrieved document context.
type Chat interface {
	// Answer embeds the message, retrieves the nearest chunks, builds a
	// grounded prompt and returns a live stream of generated text.
	// Empty input yields domain.ErrInvalidInput; exhausted generation
	// capacity yields an error wrapping domain.ErrRateLimited.
	Answer(ctx context.Context, message string) (driven.TextStream, error)
}
