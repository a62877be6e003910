// Package chunker splits normalised document text into overlapping,
// bounded-size chunks along paragraph boundaries.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/atelier-labs/ragdrive/internal/core/domain"
	"github.com/atelier-labs/ragdrive/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.Chunker = (*Splitter)(nil)

// DefaultMaxChunkSize is the default soft ceiling in characters per chunk.
const DefaultMaxChunkSize = 1000

// DefaultOverlapSize is the default number of characters seeded from the
// end of a sealed chunk into the next one.
const DefaultOverlapSize = 200

var (
	collapseNewlines = regexp.MustCompile(`\n{3,}`)
	paragraphBreak   = regexp.MustCompile(`\n{2,}`)
)

// Splitter accumulates paragraphs greedily into chunks of roughly
// maxChunkSize characters, seeding each new chunk with the tail of the
// previous one for cross-chunk context continuity.
//
// The size ceiling is soft: a single paragraph longer than maxChunkSize
// is carried into the next chunk whole rather than split mid-paragraph.
type Splitter struct {
	maxChunkSize int
	overlapSize  int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChunkSize sets the chunk size ceiling in characters.
func WithMaxChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxChunkSize = size
		}
	}
}

// WithOverlapSize sets the overlap between chunks in characters.
func WithOverlapSize(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlapSize = overlap
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxChunkSize: DefaultMaxChunkSize,
		overlapSize:  DefaultOverlapSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for new content in each chunk
	if s.overlapSize >= s.maxChunkSize {
		s.overlapSize = s.maxChunkSize / 4
	}

	return s
}

// Chunk splits text into chunks for the given file. Chunk IDs are
// deterministic ("<fileID>-chunk-<index>"), so re-chunking identical
// text yields identical IDs and content. Empty or whitespace-only text
// yields no chunks and no error.
//
// StartChar/EndChar are advisory offsets into the cleaned text: each
// seal advances the running offset by len(sealed) - overlapSize, which
// drifts from the true position once overlap seeding begins.
func (s *Splitter) Chunk(text, fileID, fileName string) []domain.TextChunk {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = collapseNewlines.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil
	}

	paragraphs := paragraphBreak.Split(cleaned, -1)

	var chunks []domain.TextChunk
	current := ""
	startChar := 0
	index := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(current)+len(paragraph) > s.maxChunkSize && len(current) > 0 {
			chunks = append(chunks, s.seal(current, fileID, fileName, index, startChar))

			// Seed the next chunk with the sealed chunk's tail
			startChar = startChar + len(current) - s.overlapSize
			current = tail(current, s.overlapSize) + "\n\n" + paragraph
			index++
			continue
		}

		if current == "" {
			current = paragraph
		} else {
			current = current + "\n\n" + paragraph
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, s.seal(current, fileID, fileName, index, startChar))
	}

	return chunks
}

// seal finalises the buffer as a chunk.
func (s *Splitter) seal(buffer, fileID, fileName string, index, startChar int) domain.TextChunk {
	return domain.TextChunk{
		ID:        fmt.Sprintf("%s-chunk-%d", fileID, index),
		FileID:    fileID,
		FileName:  fileName,
		Content:   strings.TrimSpace(buffer),
		Index:     index,
		StartChar: startChar,
		EndChar:   startChar + len(buffer),
	}
}

// tail returns the last n bytes of text, or all of it if shorter. The
// cut is advanced to the next rune boundary so multi-byte text is never
// sliced mid-rune.
func tail(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}
