package ingest

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrIndexRequired is returned when an index store is not provided.
	ErrIndexRequired = errors.New("index store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidChunkSize is returned for a non-positive target chunk size.
	ErrInvalidChunkSize = errors.New("target chunk size must be positive")

	// ErrInvalidOverlap is returned when the overlap is negative or not
	// smaller than the target chunk size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than the chunk size")
)
