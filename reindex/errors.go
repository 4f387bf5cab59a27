package reindex

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrGenerationRepositoryRequired is returned when a generation repository is not provided.
	ErrGenerationRepositoryRequired = errors.New("generation repository required")

	// ErrIndexRequired is returned when an index store is not provided.
	ErrIndexRequired = errors.New("index store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
