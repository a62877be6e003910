// Package domain contains the core entities of the ingestion and
// retrieval pipeline. Entities here carry no behaviour tied to any
// external service; adapters translate to and from provider formats.
package domain

// Document represents a file discovered in the configured drive folder.
// Documents are read once per ingestion run and never mutated.
type Document struct {
	// ID is the drive file identifier.
	ID string

	// Name is the human-readable file name.
	Name string

	// MIMEType is the drive-reported MIME type.
	MIMEType string

	// Size is the file size in bytes. Zero for native Workspace files,
	// which have no binary representation until exported.
	Size int64

	// ModifiedTime is the drive-reported last modification timestamp.
	ModifiedTime string
}

// TextChunk is a bounded contiguous slice of a document's normalised
// text, the unit of embedding and retrieval. Chunks are immutable once
// created and are superseded by re-ingesting the owning file, never
// deleted individually.
type TextChunk struct {
	// ID is deterministically derived as "<fileID>-chunk-<index>" so
	// re-ingesting the same file revision upserts over the old vectors.
	ID string

	// FileID is the drive file the chunk was cut from.
	FileID string

	// FileName is the owning file's name, carried for prompt context.
	FileName string

	// Content is the chunk text, including any overlap seeded from the
	// previous chunk.
	Content string

	// Index is the zero-based ordinal within the file.
	Index int

	// StartChar and EndChar locate the chunk in the cleaned source text.
	// They are advisory: once overlap seeding begins the offsets drift
	// and are no longer exact byte ranges.
	StartChar int
	EndChar   int
}

// VectorMetadata is the payload stored alongside each vector.
// FileID is the join key used for delete-by-file cleanup.
type VectorMetadata struct {
	FileName   string `json:"fileName"`
	FileID     string `json:"fileId"`
	ChunkIndex int    `json:"chunkIndex"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// EmbeddingVector is a vector record keyed by chunk ID.
// Values always has exactly the provider-contracted dimensionality;
// a shorter or empty vector is a hard failure, never a partial result.
type EmbeddingVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

// RetrievalMatch is a similarity search hit. It is ephemeral, used only
// to assemble prompt context for a single query.
type RetrievalMatch struct {
	// ID is the matched chunk ID.
	ID string

	// Score is the cosine similarity score, higher is closer.
	Score float64

	// Metadata is the payload stored at upsert time.
	Metadata VectorMetadata
}
