package domain

// ProcessingStatus is the ingestion pipeline state.
type ProcessingStatus string

// Pipeline states, in the order a successful run passes through them.
// StatusFailed is reachable from any state on a pipeline-fatal error.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusFetching   ProcessingStatus = "fetching"
	StatusExtracting ProcessingStatus = "extracting"
	StatusChunking   ProcessingStatus = "chunking"
	StatusEmbedding  ProcessingStatus = "embedding"
	StatusStoring    ProcessingStatus = "storing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// ProcessingProgress tracks one ingestion run. It is scoped to a single
// invocation, never persisted, and discarded once the HTTP response
// returns.
type ProcessingProgress struct {
	Status              ProcessingStatus `json:"status"`
	FilesProcessed      int              `json:"filesProcessed"`
	TotalFiles          int              `json:"totalFiles"`
	ChunksCreated       int              `json:"chunksCreated"`
	EmbeddingsGenerated int              `json:"embeddingsGenerated"`
	VectorsStored       int              `json:"vectorsStored"`
	CurrentFile         string           `json:"currentFile,omitempty"`
	Error               string           `json:"error,omitempty"`
}
