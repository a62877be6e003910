package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or missing request input.
	// Surfaced as a 4xx-equivalent and never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates a transient capacity error from the
	// embedding or generation provider. It triggers model fallback and,
	// once every configured model is exhausted, a terminal busy signal.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderFailure indicates any other upstream failure (auth,
	// malformed response, empty vector). It aborts the current
	// operation rather than falling back.
	ErrProviderFailure = errors.New("provider failure")

	// ErrPipelineFatal indicates a run-level ingestion failure: the
	// folder listing failed, or the final storage phase failed after
	// files were processed. The whole run aborts with whatever progress
	// had accumulated.
	ErrPipelineFatal = errors.New("pipeline fatal")
)
