package driven

import "context"

// TextStream delivers generated text as an incremental sequence of
// fragments. Next returns io.EOF once the stream is exhausted.
// Abandoning a stream early (caller disconnect) is signalled through
// the context passed to StreamGenerate.
type TextStream interface {
	Next() (string, error)
}

// GenerationService produces a streamed completion for a prompt.
//
// Implementations try an ordered list of capability-equivalent models:
// a rate-limit-class failure advances to the next model, any other
// failure aborts immediately. When every model is rate-limited the
// returned error wraps domain.ErrRateLimited so callers can surface a
// distinct busy signal instead of a generic failure.
type GenerationService interface {
	StreamGenerate(ctx context.Context, prompt string) (TextStream, error)

	// Close releases resources.
	Close() error
}
