package domain

import "errors"

// Sentinel errors shared between layers.
var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExtractionFailed signals a structured-generation call failure.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrUnparseableOutput signals model output that could not be parsed as knowledge items.
	ErrUnparseableOutput = errors.New("unparseable extraction output")
)
