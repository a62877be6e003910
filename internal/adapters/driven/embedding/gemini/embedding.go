// Package gemini provides an embedding service adapter using the
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Default configuration values.
const (
	// DefaultDimensions is the vector size contracted by
	// text-embedding-004.
	DefaultDimensions = 768

	// DefaultCacheEntries bounds the embedding cache.
	DefaultCacheEntries = 512

	// DefaultCacheTTL is the session window within which identical
	// inputs reuse a cached vector.
	DefaultCacheTTL = 15 * time.Minute

	// batchDelay is the spacing between successive embedding calls in a
	// batch, to stay under provider rate limits.
	batchDelay = 100 * time.Millisecond

	// cacheKeyLength is how many leading bytes of the input
	// distinguish cache entries.
	cacheKeyLength = 256
)

// DefaultModels is the ordered fallback list of embedding models.
var DefaultModels = []string{"text-embedding-004"}

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Models is the ordered list of model identifiers to try
	// (default: text-embedding-004).
	Models []string

	// Dimensions is the contracted vector size (default: 768).
	Dimensions int

	// CacheEntries bounds the embedding cache (default: 512).
	CacheEntries int

	// CacheTTL is the cache expiry window (default: 15m).
	CacheTTL time.Duration
}

// Service generates embeddings using the Gemini API with role-aware
// task types, a bounded TTL cache and ordered model fallback.
type Service struct {
	client     *genai.Client
	models     []string
	dimensions int
	cache      *vectorCache

	// embedFn performs a single provider call for one model. Replaced
	// in tests.
	embedFn func(ctx context.Context, model, text string, role driven.EmbeddingRole) ([]float32, error)
}

// NewService creates a new Gemini embedding service.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.CacheEntries == 0 {
		cfg.CacheEntries = DefaultCacheEntries
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	s := &Service{
		client:     client,
		models:     cfg.Models,
		dimensions: cfg.Dimensions,
		cache:      newVectorCache(cfg.CacheEntries, cfg.CacheTTL),
	}
	s.embedFn = s.embedWithModel

	return s, nil
}

// embedWithModel performs one EmbedContent call against a single model.
func (s *Service) embedWithModel(ctx context.Context, model, text string, role driven.EmbeddingRole) ([]float32, error) {
	em := s.client.EmbeddingModel(model)
	em.TaskType = taskTypeFor(role)

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: model %s returned an empty embedding", domain.ErrProviderFailure, model)
	}
	return resp.Embedding.Values, nil
}

// taskTypeFor maps the embedding role onto the provider task type.
func taskTypeFor(role driven.EmbeddingRole) genai.TaskType {
	if role == driven.RoleQuery {
		return genai.TaskTypeRetrievalQuery
	}
	return genai.TaskTypeRetrievalDocument
}

// cacheKey builds the cache key from the role and the input prefix.
// The role prefix keeps document and query vectors for identical text
// from colliding. The prefix cut backs up to a rune boundary so
// multi-byte text keys stay valid UTF-8.
func cacheKey(role driven.EmbeddingRole, text string) string {
	if len(text) > cacheKeyLength {
		cut := cacheKeyLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return string(role) + ":" + text
}

// Embed generates a vector for the given text and role. Models are
// tried in order; a failure is logged and the next model attempted. If
// every model fails the errors are aggregated into one failure. The
// result is cached within the session window.
func (s *Service) Embed(ctx context.Context, text string, role driven.EmbeddingRole) ([]float32, error) {
	key := cacheKey(role, text)
	if values, ok := s.cache.get(key); ok {
		logger.Debug("embedding cache hit (role=%s)", role)
		return values, nil
	}

	var attempts []error
	for _, model := range s.models {
		values, err := s.embedFn(ctx, model, text, role)
		if err != nil {
			logger.Warn("embedding model %s failed: %v", model, err)
			attempts = append(attempts, fmt.Errorf("model %s: %w", model, err))
			continue
		}
		if len(values) != s.dimensions {
			err := fmt.Errorf("%w: model %s returned %d values, want %d",
				domain.ErrProviderFailure, model, len(values), s.dimensions)
			logger.Warn("%v", err)
			attempts = append(attempts, err)
			continue
		}

		s.cache.put(key, values)
		return values, nil
	}

	return nil, fmt.Errorf("embed failed for all %d model(s): %w", len(s.models), errors.Join(attempts...))
}

// EmbedWithRetry wraps Embed with exponential backoff for transient
// failures. The delay doubles on each attempt: baseDelay * 2^attempt.
func (s *Service) EmbedWithRetry(ctx context.Context, text string, role driven.EmbeddingRole, maxRetries int, baseDelay time.Duration) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		values, err := s.Embed(ctx, text, role)
		if err == nil {
			return values, nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			delay := baseDelay * (1 << attempt)
			logger.Debug("embed attempt %d failed, retrying in %s", attempt+1, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("embed failed after %d attempt(s): %w", maxRetries, lastErr)
}

// EmbedBatch embeds chunks strictly in order with a short delay between
// calls. Any single-chunk failure aborts the whole batch.
func (s *Service) EmbedBatch(ctx context.Context, chunks []domain.TextChunk, onProgress func(processed, total int)) (map[string][]float32, error) {
	embeddings := make(map[string][]float32, len(chunks))

	for i, chunk := range chunks {
		values, err := s.Embed(ctx, chunk.Content, driven.RoleDocument)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		embeddings[chunk.ID] = values

		if onProgress != nil {
			onProgress(i+1, len(chunks))
		}

		if i < len(chunks)-1 {
			if err := sleepCtx(ctx, batchDelay); err != nil {
				return nil, err
			}
		}
	}

	return embeddings, nil
}

// Dimensions returns the contracted embedding vector size.
func (s *Service) Dimensions() int {
	return s.dimensions
}

// Close releases the underlying client.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// sleepCtx sleeps for d or returns early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
