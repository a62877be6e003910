// Package services implements the application's core use cases on top
// of the driven ports.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driving"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.Ingestor = (*IngestionPipeline)(nil)

// metadataContentLimit caps the chunk text stored as vector metadata.
const metadataContentLimit = 1000

// workspacePrefix marks Google-native formats that must be exported
// rather than downloaded.
const workspacePrefix = "application/vnd.google-apps."

// IngestionPipeline turns a drive folder into stored embedding vectors:
// fetch, extract, chunk, embed, then a single final storage phase.
type IngestionPipeline struct {
	drive     driven.DriveService
	extractor driven.TextExtractor
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	store     driven.VectorStore

	// now is replaced in tests for stable timestamps.
	now func() time.Time
}

// NewIngestionPipeline creates an ingestion pipeline over the given
// services.
func NewIngestionPipeline(
	drive driven.DriveService,
	extractor driven.TextExtractor,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
) *IngestionPipeline {
	return &IngestionPipeline{
		drive:     drive,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		now:       time.Now,
	}
}

// ProcessFolder ingests every file in the folder. Per-file failures
// (download, export, extraction, embedding) are recorded and the run
// continues with the next file; a folder listing or storage failure is
// pipeline-fatal and returns an error wrapping domain.ErrPipelineFatal.
func (p *IngestionPipeline) ProcessFolder(ctx context.Context, folderID string) (*domain.ProcessingProgress, string, error) {
	runID := uuid.NewString()
	progress := &domain.ProcessingProgress{Status: domain.StatusPending}

	logger.Info("ingestion run %s: listing folder %s", runID, folderID)
	progress.Status = domain.StatusFetching

	files, err := p.drive.ListFiles(ctx, folderID)
	if err != nil {
		progress.Status = domain.StatusFailed
		progress.Error = err.Error()
		return progress, "", fmt.Errorf("%w: list folder %s: %v", domain.ErrPipelineFatal, folderID, err)
	}
	progress.TotalFiles = len(files)

	var vectors []domain.EmbeddingVector
	var failures []string

	for _, file := range files {
		progress.CurrentFile = file.Name

		fileVectors, err := p.processFile(ctx, file, progress)
		if err != nil {
			// Recovered per-file: counted processed with zero output.
			logger.Warn("ingestion run %s: file %s (%s) failed: %v", runID, file.Name, file.ID, err)
			failures = append(failures, fmt.Sprintf("%s: %v", file.Name, err))
		} else {
			vectors = append(vectors, fileVectors...)
		}
		progress.FilesProcessed++
	}
	progress.CurrentFile = ""

	progress.Status = domain.StatusStoring
	if len(vectors) > 0 {
		if err := p.store.Upsert(ctx, vectors); err != nil {
			progress.Status = domain.StatusFailed
			progress.Error = err.Error()
			return progress, "", fmt.Errorf("%w: store vectors: %v", domain.ErrPipelineFatal, err)
		}
	}
	progress.VectorsStored = len(vectors)
	progress.Status = domain.StatusCompleted

	if len(failures) > 0 {
		progress.Error = strings.Join(failures, "; ")
	}

	summary := fmt.Sprintf("Successfully processed %d files", progress.FilesProcessed)
	logger.Info("ingestion run %s: %s (%d chunks, %d vectors stored)",
		runID, summary, progress.ChunksCreated, progress.VectorsStored)

	return progress, summary, nil
}

// processFile extracts, chunks and embeds a single file, returning its
// vectors. A file that yields no text is processed successfully with
// zero vectors.
func (p *IngestionPipeline) processFile(ctx context.Context, file domain.Document, progress *domain.ProcessingProgress) ([]domain.EmbeddingVector, error) {
	progress.Status = domain.StatusExtracting

	text, err := p.extractText(ctx, file)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		logger.Debug("file %s contains no extractable text, skipping", file.Name)
		return nil, nil
	}

	progress.Status = domain.StatusChunking
	chunks := p.chunker.Chunk(text, file.ID, file.Name)
	progress.ChunksCreated += len(chunks)
	if len(chunks) == 0 {
		return nil, nil
	}

	progress.Status = domain.StatusEmbedding
	embeddings, err := p.embedder.EmbedBatch(ctx, chunks, func(processed, total int) {
		logger.Debug("embedding %s: %d/%d", file.Name, processed, total)
	})
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	progress.EmbeddingsGenerated += len(embeddings)

	timestamp := p.now().UTC().Format(time.RFC3339)
	vectors := make([]domain.EmbeddingVector, 0, len(chunks))
	for _, chunk := range chunks {
		values, ok := embeddings[chunk.ID]
		if !ok {
			return nil, fmt.Errorf("no embedding produced for chunk %s", chunk.ID)
		}
		vectors = append(vectors, domain.EmbeddingVector{
			ID:     chunk.ID,
			Values: values,
			Metadata: domain.VectorMetadata{
				FileName:   chunk.FileName,
				FileID:     chunk.FileID,
				ChunkIndex: chunk.Index,
				Content:    truncate(chunk.Content, metadataContentLimit),
				Timestamp:  timestamp,
			},
		})
	}

	return vectors, nil
}

// extractText obtains plain text for a file, exporting Workspace-native
// formats and extracting everything else from downloaded bytes.
func (p *IngestionPipeline) extractText(ctx context.Context, file domain.Document) (string, error) {
	if strings.HasPrefix(file.MIMEType, workspacePrefix) {
		text, err := p.drive.ExportAsText(ctx, file.ID, file.MIMEType)
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		return text, nil
	}

	content, err := p.drive.Download(ctx, file.ID)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	text, err := p.extractor.Extract(content, file.MIMEType, file.Name)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return text, nil
}

// truncate bounds s to at most limit bytes, backing up to a rune
// boundary so multi-byte text is never cut mid-rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
