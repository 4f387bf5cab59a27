package storage

import (
	"context"
	"time"

	"github.com/jpvia/normabot/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for managing regulatory text chunks.
// Chunks are immutable once written; a reindex replaces whole sources.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage.
	// For chunks with ID=0, generates content-based IDs.
	// Sets InsertedAt timestamp if not already set.
	// Returns the chunks with IDs and timestamps populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetAllChunks retrieves every stored chunk. Used for index rebuilds.
	GetAllChunks(ctx context.Context) ([]*core.Chunk, error)

	// GetChunksBySource retrieves all chunks that belong to a source.
	GetChunksBySource(ctx context.Context, sourceID string) ([]*core.Chunk, error)

	// DeleteChunksBySource removes all chunks of a source, including
	// their index entries. Returns the number of chunks removed.
	DeleteChunksBySource(ctx context.Context, sourceID string) (int, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// TurnRepository provides operations for the append-only conversation log.
// Turns are keyed by (session, sequence); sequences are assigned by the
// repository and are strictly increasing within a session.
type TurnRepository interface {
	Repository
	// AppendTurn appends a turn to its session, assigning the next
	// sequence number and a content-based ID.
	// Sets Timestamp if not already set.
	AppendTurn(ctx context.Context, turn *core.ConversationTurn) (*core.ConversationTurn, error)

	// UpdateTurns rewrites existing turns in place. Used to flip the
	// Consolidated flag. Returns ErrNotFound if any turn doesn't exist.
	UpdateTurns(ctx context.Context, turns ...*core.ConversationTurn) ([]*core.ConversationTurn, error)

	// GetTurn retrieves a single turn by session and sequence.
	// Returns ErrNotFound if the turn doesn't exist.
	GetTurn(ctx context.Context, sessionID string, sequence uint64) (*core.ConversationTurn, error)

	// GetSessionTurns retrieves all turns of a session in sequence order.
	GetSessionTurns(ctx context.Context, sessionID string) ([]*core.ConversationTurn, error)

	// GetRecentTurns retrieves the N most recent turns of a session,
	// ordered by sequence descending.
	GetRecentTurns(ctx context.Context, sessionID string, limit int) ([]*core.ConversationTurn, error)

	// GetUnconsolidatedTurns retrieves turns not yet absorbed by
	// consolidation, oldest first, up to limit.
	GetUnconsolidatedTurns(ctx context.Context, limit int) ([]*core.ConversationTurn, error)

	// FindSimilarTurns finds turns whose embedding is similar to the given
	// vector. Returns turns with similarity >= minSimilarity, up to limit,
	// ordered by similarity score (highest first).
	FindSimilarTurns(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredTurn, error)

	// EvictOlderThan removes turns with Timestamp before cutoff.
	// Returns the number of turns removed.
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// EvictToCap removes the oldest turns until at most maxTurns remain.
	// Returns the number of turns removed.
	EvictToCap(ctx context.Context, maxTurns int) (int, error)

	// EvictSessionToCap removes a session's oldest turns until at most
	// maxTurns remain in that session. Returns the number removed.
	EvictSessionToCap(ctx context.Context, sessionID string, maxTurns int) (int, error)

	// CountTurns returns the total number of stored turns.
	CountTurns(ctx context.Context) (int, error)
}

// LongTermRepository provides operations for consolidated knowledge entries.
type LongTermRepository interface {
	Repository
	// UpsertEntries writes entries, overwriting any existing entry with
	// the same cluster ID. Sets CreatedAt on first write and bumps
	// UpdatedAt on every write.
	UpsertEntries(ctx context.Context, entries ...*core.LongTermEntry) ([]*core.LongTermEntry, error)

	// GetEntry retrieves a single entry by cluster ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, clusterID core.ID) (*core.LongTermEntry, error)

	// GetAllEntries retrieves every consolidated entry.
	GetAllEntries(ctx context.Context) ([]*core.LongTermEntry, error)
}

// GenerationRepository persists the published index generation so a
// restart resumes from the last committed snapshot.
type GenerationRepository interface {
	// SaveGeneration persists the generation number.
	SaveGeneration(ctx context.Context, generation core.Generation) error

	// LoadGeneration retrieves the persisted generation number.
	// Returns 0 if none has been saved.
	LoadGeneration(ctx context.Context) (core.Generation, error)
}
