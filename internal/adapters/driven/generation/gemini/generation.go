// Package gemini provides a streaming generation service adapter using
// the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.GenerationService = (*Service)(nil)

// DefaultModels is the ordered fallback list of generation models,
// cheapest variant first.
var DefaultModels = []string{"gemini-2.0-flash-lite", "gemini-2.0-flash"}

// Config holds configuration for the Gemini generation service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Models is the ordered list of model identifiers to try.
	Models []string
}

// Service streams completions from the Gemini API, advancing through
// the configured model list on rate-limit failures.
type Service struct {
	client *genai.Client
	models []string

	// generateFn starts a stream against a single model. Replaced in
	// tests.
	generateFn func(ctx context.Context, model, prompt string) (driven.TextStream, error)
}

// NewService creates a new Gemini generation service.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	s := &Service{
		client: client,
		models: cfg.Models,
	}
	s.generateFn = s.streamWithModel

	return s, nil
}

// StreamGenerate submits the prompt to each model in order. A
// rate-limit failure advances to the next model; any other failure
// aborts immediately. When every model is rate-limited the returned
// error wraps domain.ErrRateLimited.
func (s *Service) StreamGenerate(ctx context.Context, prompt string) (driven.TextStream, error) {
	var lastErr error

	for _, model := range s.models {
		stream, err := s.generateFn(ctx, model, prompt)
		if err == nil {
			logger.Info("generating with model %s", model)
			return stream, nil
		}

		if !isRateLimited(err) {
			return nil, fmt.Errorf("%w: model %s: %v", domain.ErrProviderFailure, model, err)
		}

		logger.Warn("model %s rate limited, trying next", model)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: all %d model(s) exhausted: %v", domain.ErrRateLimited, len(s.models), lastErr)
}

// streamWithModel starts a streamed generation against one model. The
// first fragment is fetched eagerly so that rate-limit failures are
// classified before any output is delivered.
func (s *Service) streamWithModel(ctx context.Context, model, prompt string) (driven.TextStream, error) {
	gm := s.client.GenerativeModel(model)
	iter := gm.GenerateContentStream(ctx, genai.Text(prompt))

	resp, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return &contentStream{done: true}, nil
	}
	if err != nil {
		return nil, err
	}

	return &contentStream{iter: iter, pending: responseText(resp)}, nil
}

// contentStream adapts the genai response iterator to a TextStream.
type contentStream struct {
	iter    *genai.GenerateContentResponseIterator
	pending string
	done    bool
}

// Next returns the next text fragment, or io.EOF when the stream is
// exhausted.
func (s *contentStream) Next() (string, error) {
	if s.pending != "" {
		fragment := s.pending
		s.pending = ""
		return fragment, nil
	}
	if s.done {
		return "", io.EOF
	}

	resp, err := s.iter.Next()
	if errors.Is(err, iterator.Done) {
		s.done = true
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("stream generation: %w", err)
	}

	return responseText(resp), nil
}

// responseText concatenates the text parts of a response chunk.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// isRateLimited reports whether err is a rate-limit-class provider
// failure.
func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	return strings.Contains(err.Error(), "429")
}

// Close releases the underlying client.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
