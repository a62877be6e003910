package driven

import (
	"context"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
)

// DriveService lists and fetches documents from the cloud drive folder
// that backs the knowledge base.
type DriveService interface {
	// ListFiles returns the non-trashed files in the given folder.
	ListFiles(ctx context.Context, folderID string) ([]domain.Document, error)

	// Download fetches the raw bytes of a regular (non-Workspace) file.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// ExportAsText exports a native Workspace document, spreadsheet or
	// presentation to plain text (CSV for spreadsheets). Native formats
	// have no byte representation to download, so they must be exported
	// before reaching the text extractor.
	ExportAsText(ctx context.Context, fileID, mimeType string) (string, error)
}

// TextExtractor normalises heterogeneous document bytes into plain text
// given a format hint. Extraction failure for one document is reported
// per-file and never aborts a whole ingestion run.
type TextExtractor interface {
	Extract(content []byte, mimeType, fileName string) (string, error)
}

// Chunker splits normalised text into overlapping, bounded-size chunks
// with stable, deterministic IDs.
type Chunker interface {
	Chunk(text, fileID, fileName string) []domain.TextChunk
}
