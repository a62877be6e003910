package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

// queryStore returns canned matches and records queries.
type queryStore struct {
	fakeStore
	matches  []domain.RetrievalMatch
	queryErr error
	topKSeen int
}

func (s *queryStore) Query(_ context.Context, _ []float32, topK int, _ map[string]any) ([]domain.RetrievalMatch, error) {
	s.topKSeen = topK
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.matches, nil
}

// fakeGenerator captures the prompt and returns a canned stream.
type fakeGenerator struct {
	prompt string
	err    error
}

func (g *fakeGenerator) StreamGenerate(_ context.Context, prompt string) (driven.TextStream, error) {
	g.prompt = prompt
	if g.err != nil {
		return nil, g.err
	}
	return &staticStream{fragments: []string{"answer"}}, nil
}

func (g *fakeGenerator) Close() error { return nil }

type staticStream struct {
	fragments []string
	pos       int
}

func (s *staticStream) Next() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

func match(id, fileName, content string, score float64) domain.RetrievalMatch {
	return domain.RetrievalMatch{
		ID:    id,
		Score: score,
		Metadata: domain.VectorMetadata{
			FileName: fileName,
			FileID:   "file-1",
			Content:  content,
		},
	}
}

func TestAnswer_EmptyMessage(t *testing.T) {
	s := NewChatService(&fakeEmbedder{}, &queryStore{}, &fakeGenerator{})

	_, err := s.Answer(context.Background(), "   \n ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_BuildsGroundedPrompt(t *testing.T) {
	store := &queryStore{matches: []domain.RetrievalMatch{
		match("c-1", "guide.pdf", "alpha", 0.9),
		match("c-2", "notes.txt", "beta", 0.8),
	}}
	generator := &fakeGenerator{}
	s := NewChatService(&fakeEmbedder{}, store, generator)

	stream, err := s.Answer(context.Background(), "what is alpha?")
	require.NoError(t, err)

	fragment, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "answer", fragment)

	assert.Equal(t, DefaultTopK, store.topKSeen)
	assert.Contains(t, generator.prompt, "[Document 1: guide.pdf]\nalpha")
	assert.Contains(t, generator.prompt, "[Document 2: notes.txt]\nbeta")
	assert.Contains(t, generator.prompt, "what is alpha?")
	assert.Contains(t, generator.prompt, "\n\n---\n\n")
}

func TestAnswer_OrdersContextByScore(t *testing.T) {
	store := &queryStore{matches: []domain.RetrievalMatch{
		match("c-low", "low.txt", "least relevant", 0.3),
		match("c-high", "high.txt", "most relevant", 0.95),
		match("c-mid", "mid.txt", "somewhat relevant", 0.6),
	}}
	generator := &fakeGenerator{}
	s := NewChatService(&fakeEmbedder{}, store, generator)

	_, err := s.Answer(context.Background(), "question")
	require.NoError(t, err)

	high := strings.Index(generator.prompt, "high.txt")
	mid := strings.Index(generator.prompt, "mid.txt")
	low := strings.Index(generator.prompt, "low.txt")
	assert.True(t, high < mid && mid < low, "context must be ordered by descending similarity")
	assert.Contains(t, generator.prompt, "[Document 1: high.txt]")
}

func TestAnswer_NoContextFound(t *testing.T) {
	generator := &fakeGenerator{}
	s := NewChatService(&fakeEmbedder{}, &queryStore{}, generator)

	_, err := s.Answer(context.Background(), "unknown topic")
	require.NoError(t, err)

	assert.Contains(t, generator.prompt, "No relevant documents were found")
	assert.Contains(t, generator.prompt, "unknown topic")
	assert.NotContains(t, generator.prompt, "[Document")
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	store := &queryStore{queryErr: fmt.Errorf("%w: index down", domain.ErrProviderFailure)}
	s := NewChatService(&fakeEmbedder{}, store, &fakeGenerator{})

	_, err := s.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestAnswer_RateLimitPropagates(t *testing.T) {
	generator := &fakeGenerator{err: fmt.Errorf("%w: all models exhausted", domain.ErrRateLimited)}
	s := NewChatService(&fakeEmbedder{}, &queryStore{}, generator)

	_, err := s.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestAnswer_EmbedFailure(t *testing.T) {
	s := NewChatService(&failingEmbedder{}, &queryStore{}, &fakeGenerator{})

	_, err := s.Answer(context.Background(), "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

// failingEmbedder fails every embedding call.
type failingEmbedder struct {
	fakeEmbedder
}

func (failingEmbedder) Embed(_ context.Context, _ string, _ driven.EmbeddingRole) ([]float32, error) {
	return nil, errors.New("embedding unavailable")
}
