package domain

import "errors"

var (
	// ErrInvalidInput signals malformed or missing request data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuery signals an empty or unusable search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound signals a missing resource (index bundle, CSV file, scheme row).
	ErrNotFound = errors.New("not found")
	// ErrIndexNotReady signals that no index has been built or loaded yet.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrCorruptIndex signals a structural invariant violation in a persisted bundle.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrDimensionMismatch signals that a vector dimension disagrees with the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrBuildInProgress signals that another index build is already running.
	ErrBuildInProgress = errors.New("index build already in progress")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text-generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)

// KeyPrefix namespaces all KV store keys.
const KeyPrefix = "schemedex:"
