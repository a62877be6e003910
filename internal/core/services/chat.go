package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driving"
	"github.com/atelier-labs/ragdrive/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.Chat = (*ChatService)(nil)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// ChatService answers questions grounded in retrieved document chunks.
type ChatService struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	generator driven.GenerationService
	topK      int
}

// ChatOption configures a ChatService.
type ChatOption func(*ChatService)

// WithTopK overrides the retrieval depth.
func WithTopK(topK int) ChatOption {
	return func(s *ChatService) {
		if topK > 0 {
			s.topK = topK
		}
	}
}

// NewChatService creates a chat service with the default retrieval
// depth.
func NewChatService(embedder driven.EmbeddingService, store driven.VectorStore, generator driven.GenerationService, opts ...ChatOption) *ChatService {
	s := &ChatService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer embeds the message as a query, retrieves the nearest chunks,
// assembles a grounded prompt and returns the live generation stream.
func (s *ChatService) Answer(ctx context.Context, message string) (driven.TextStream, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	vector, err := s.embedder.Embed(ctx, message, driven.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, vector, s.topK, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	logger.Debug("retrieved %d chunks for question", len(matches))

	prompt := buildPrompt(message, matches)
	return s.generator.StreamGenerate(ctx, prompt)
}

// buildPrompt assembles the grounded generation prompt. Matches are
// ordered by descending similarity so the most relevant context leads.
func buildPrompt(message string, matches []domain.RetrievalMatch) string {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) == 0 {
		return fmt.Sprintf(`You are a helpful assistant answering questions about a document collection.

No relevant documents were found for this question. Tell the user that the knowledge base contains no information on this topic, and answer in the same language the question was asked in.

Question: %s`, message)
	}

	sections := make([]string, 0, len(matches))
	for i, match := range matches {
		sections = append(sections, fmt.Sprintf("[Document %d: %s]\n%s", i+1, match.Metadata.FileName, match.Metadata.Content))
	}

	return fmt.Sprintf(`You are a helpful assistant answering questions about a document collection. Use only the context below to answer. Be concise. If the context does not contain the answer, say so instead of guessing. Always answer in the same language the question was asked in.

Context:
%s

Question: %s`, strings.Join(sections, "\n\n---\n\n"), message)
}
