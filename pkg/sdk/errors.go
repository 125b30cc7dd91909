package schemedex

import (
	"fmt"

	"github.com/kailas-cloud/schemedex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput            = domain.ErrInvalidInput
	ErrInvalidQuery            = domain.ErrInvalidQuery
	ErrNotFound                = domain.ErrNotFound
	ErrIndexNotReady           = domain.ErrIndexNotReady
	ErrCorruptIndex            = domain.ErrCorruptIndex
	ErrDimensionMismatch       = domain.ErrDimensionMismatch
	ErrBuildInProgress         = domain.ErrBuildInProgress
	ErrEmbeddingQuotaExceeded  = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
)

// codeSentinels maps API error codes to sentinel errors.
var codeSentinels = map[string]error{
	"validation_failed":         ErrInvalidInput,
	"not_found":                 ErrNotFound,
	"index_not_ready":           ErrIndexNotReady,
	"build_in_progress":         ErrBuildInProgress,
	"corrupt_index":             ErrCorruptIndex,
	"dimension_mismatch":        ErrDimensionMismatch,
	"embedding_quota_exceeded":  ErrEmbeddingQuotaExceeded,
	"embedding_provider_error":  ErrEmbeddingProviderError,
	"generation_provider_error": ErrGenerationProviderError,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("schemedex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the API error code onto a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	return codeSentinels[e.Code]
}
