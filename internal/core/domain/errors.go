package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyUnit indicates a unit whose segments carry no text.
	// Such a unit produces zero chunks and is reported as a failed item.
	ErrEmptyUnit = errors.New("unit has no transcript text")

	// ErrNoCandidates indicates a full build found nothing to index.
	ErrNoCandidates = errors.New("no candidate units")

	// ErrBuildInProgress indicates a build already holds the store.
	ErrBuildInProgress = errors.New("build in progress")

	// ErrConfigInvalid indicates settings failed validation.
	ErrConfigInvalid = errors.New("invalid configuration")

	// Service Errors.

	// ErrTokenLimitExceeded indicates an embedding request exceeded the
	// provider's per-request token ceiling. The batch must be split.
	ErrTokenLimitExceeded = errors.New("embedding request exceeds token limit")

	// ErrRateLimited indicates the provider rejected a request for rate reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Summaries fall back to key-sentence extraction.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrStoreUnavailable indicates a similarity store is missing or unreadable.
	ErrStoreUnavailable = errors.New("similarity store unavailable")
)
