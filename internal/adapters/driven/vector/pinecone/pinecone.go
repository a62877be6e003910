// Package pinecone provides a vector store adapter using the Pinecone
// REST API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultControlURL = "https://api.pinecone.io"
	DefaultIndexName  = "ai-chatbot-embeddings"
	DefaultDimension  = 768
	DefaultTimeout    = 60 * time.Second

	// upsertBatchSize is the provider-side batch ceiling.
	upsertBatchSize = 100

	// readyPollInterval and readyTimeout bound the wait for a freshly
	// created index to become queryable.
	readyPollInterval = 2 * time.Second
	readyTimeout      = 2 * time.Minute
)

// Config holds configuration for the Pinecone store.
type Config struct {
	// APIKey is the Pinecone API key (required).
	APIKey string

	// IndexName is the target index (default: ai-chatbot-embeddings).
	IndexName string

	// Dimension is the index dimensionality, which must match the
	// embedding provider's contract (default: 768).
	Dimension int

	// ControlURL is the control-plane base URL. Overridable for tests.
	ControlURL string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration
}

// Store talks to Pinecone over its REST API. The index handle is
// process-wide shared state: the first operation resolves (and if
// needed creates) the index exactly once, and every later operation
// reuses the cached data-plane host.
type Store struct {
	client     *http.Client
	controlURL string
	apiKey     string
	indexName  string
	dimension  int

	initOnce sync.Once
	initErr  error
	dataURL  string
}

// New creates a new Pinecone store. No network calls happen until the
// first operation.
func New(cfg Config) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = DefaultControlURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		controlURL: cfg.ControlURL,
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
		dimension:  cfg.Dimension,
	}, nil
}

// indexDescription is the control-plane index metadata.
type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// createIndexRequest is the control-plane create format.
type createIndexRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

// ensureIndex resolves the data-plane host, creating the index on
// first use if it does not exist. Concurrent first callers are
// serialised to a single winner.
func (s *Store) ensureIndex(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.connect(ctx)
	})
	return s.initErr
}

// connect describes the index, creates it if missing and waits for it
// to become ready.
func (s *Store) connect(ctx context.Context) error {
	desc, status, err := s.describeIndex(ctx)
	if err != nil {
		return err
	}

	if status == http.StatusNotFound {
		logger.Info("creating pinecone index %s (dimension %d, cosine)", s.indexName, s.dimension)
		if err := s.createIndex(ctx); err != nil {
			return err
		}

		desc, err = s.waitReady(ctx)
		if err != nil {
			return err
		}
	}

	s.dataURL = dataPlaneURL(desc.Host)
	logger.Info("pinecone index %s ready at %s", s.indexName, desc.Host)
	return nil
}

// describeIndex fetches the index description. A 404 is not an error;
// it signals the caller to create the index.
func (s *Store) describeIndex(ctx context.Context) (*indexDescription, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.indexName, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: create describe request: %v", domain.ErrProviderFailure, err)
	}
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: describe index: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, http.StatusNotFound, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read describe response: %v", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: describe index (status %d): %s", domain.ErrProviderFailure, resp.StatusCode, string(body))
	}

	var desc indexDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, 0, fmt.Errorf("%w: decode describe response: %v", domain.ErrProviderFailure, err)
	}
	return &desc, resp.StatusCode, nil
}

// createIndex creates a serverless index with a cosine metric.
func (s *Store) createIndex(ctx context.Context) error {
	reqBody := createIndexRequest{
		Name:      s.indexName,
		Dimension: s.dimension,
		Metric:    "cosine",
	}
	reqBody.Spec.Serverless.Cloud = "aws"
	reqBody.Spec.Serverless.Region = "us-east-1"

	var result json.RawMessage
	if err := s.doJSON(ctx, http.MethodPost, s.controlURL+"/indexes", reqBody, &result); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// waitReady polls the index description until the index is ready.
func (s *Store) waitReady(ctx context.Context) (*indexDescription, error) {
	deadline := time.Now().Add(readyTimeout)

	for {
		desc, status, err := s.describeIndex(ctx)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK && desc.Status.Ready {
			return desc, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: index %s not ready after %s", domain.ErrProviderFailure, s.indexName, readyTimeout)
		}

		timer := time.NewTimer(readyPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// dataPlaneURL builds the data-plane base URL from the index host.
func dataPlaneURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// upsertRequest is the data-plane upsert format.
type upsertRequest struct {
	Vectors []domain.EmbeddingVector `json:"vectors"`
}

// Upsert inserts or updates vectors in sub-batches of at most 100
// records, submitted sequentially.
func (s *Store) Upsert(ctx context.Context, vectors []domain.EmbeddingVector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return err
	}

	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}

		var result json.RawMessage
		if err := s.doJSON(ctx, http.MethodPost, s.dataURL+"/vectors/upsert", upsertRequest{Vectors: vectors[start:end]}, &result); err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
	}

	logger.Info("upserted %d vectors to index %s", len(vectors), s.indexName)
	return nil
}

// queryRequest is the data-plane query format.
type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

// queryResponse is the data-plane query response format.
type queryResponse struct {
	Matches []struct {
		ID       string                `json:"id"`
		Score    float64               `json:"score"`
		Metadata domain.VectorMetadata `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest vectors with their metadata,
// optionally constrained by a metadata filter.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.RetrievalMatch, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	var resp queryResponse
	reqBody := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	}
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL+"/query", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.RetrievalMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}

// deleteRequest is the data-plane delete format.
type deleteRequest struct {
	Filter map[string]any `json:"filter"`
}

// DeleteByFileID removes all vectors whose metadata fileId equals the
// given id.
func (s *Store) DeleteByFileID(ctx context.Context, fileID string) error {
	if err := s.ensureIndex(ctx); err != nil {
		return err
	}

	reqBody := deleteRequest{
		Filter: map[string]any{
			"fileId": map[string]any{"$eq": fileID},
		},
	}

	var result json.RawMessage
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL+"/vectors/delete", reqBody, &result); err != nil {
		return fmt.Errorf("delete vectors for file %s: %w", fileID, err)
	}

	logger.Info("deleted vectors for file %s", fileID)
	return nil
}

// statsResponse is the describe_index_stats response format.
type statsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Dimension        int `json:"dimension"`
}

// Stats returns index statistics.
func (s *Store) Stats(ctx context.Context) (*driven.VectorStats, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	var resp statsResponse
	if err := s.doJSON(ctx, http.MethodPost, s.dataURL+"/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("describe index stats: %w", err)
	}

	return &driven.VectorStats{
		TotalVectors: resp.TotalVectorCount,
		Dimension:    resp.Dimension,
	}, nil
}

// doJSON performs an authenticated JSON round trip and decodes the
// response into out. Non-2xx responses become provider failures.
func (s *Store) doJSON(ctx context.Context, method, url string, in, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", domain.ErrProviderFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrProviderFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: pinecone error (status %d): %s", domain.ErrProviderFailure, resp.StatusCode, string(body))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrProviderFailure, err)
		}
	}
	return nil
}
