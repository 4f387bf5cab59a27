package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/jpvia/normabot/ai"
	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
	"github.com/jpvia/normabot/storage"
)

// DefaultEmbedBatch is how many chunk texts go to the embedder per call.
const DefaultEmbedBatch = 32

// Pipeline turns raw source documents into stored, indexed chunks.
// Chunks become lexically searchable as soon as they are stored;
// embeddings are computed in pooled batches and folded in afterwards, so
// an unreachable embedding provider degrades ingestion to lexical-only
// instead of failing it.
type Pipeline struct {
	chunkRepository storage.ChunkRepository
	indexStore      *index.Store
	embedder        ai.Embedder
	chunker         *Chunker
	pool            *ants.Pool
	embedBatch      int
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunker sets a custom chunking policy.
func WithChunker(chunker *Chunker) Option {
	return func(p *Pipeline) error {
		if chunker != nil {
			p.chunker = chunker
		}
		return nil
	}
}

// WithEmbedBatch sets the embedding batch size.
func WithEmbedBatch(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = DefaultEmbedBatch
		}
		p.embedBatch = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	chunkRepository storage.ChunkRepository,
	indexStore *index.Store,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if indexStore == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	chunker, err := NewChunker()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		chunkRepository: chunkRepository,
		indexStore:      indexStore,
		embedder:        provider.Embedder(),
		chunker:         chunker,
		pool:            pool,
		embedBatch:      DefaultEmbedBatch,
		logger:          slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest replaces a source wholesale: existing chunks of the source are
// removed, the new text is chunked, stored, embedded, and published to
// the index. Returns the number of chunks produced. Embedding failures
// are logged, not fatal; the source stays lexically searchable.
func (p *Pipeline) Ingest(ctx context.Context, sourceID, text string) (int, error) {
	if sourceID == "" {
		return 0, core.ErrEmptySource
	}

	chunks := p.chunker.Chunk(sourceID, text)
	oldIDs := p.sourceChunkIDs(sourceID)

	removed, err := p.chunkRepository.DeleteChunksBySource(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		p.logger.Info("replaced source chunks", "source", sourceID, "removed", removed)
	}
	if len(chunks) == 0 {
		p.indexStore.Remove(oldIDs...)
		return 0, nil
	}

	stored, err := p.chunkRepository.AddChunks(ctx, chunks...)
	if err != nil {
		return 0, err
	}

	p.embedChunks(ctx, stored)

	// Re-store so embeddings survive restarts, then publish. Content IDs
	// make the second write an overwrite, not a duplicate.
	if _, err := p.chunkRepository.AddChunks(ctx, stored...); err != nil {
		return 0, err
	}
	if _, err := p.indexStore.Add(stored...); err != nil {
		return 0, err
	}
	if stale := staleIDs(oldIDs, stored); len(stale) > 0 {
		p.indexStore.Remove(stale...)
	}

	p.logger.Info("source ingested",
		"source", sourceID, "chunks", len(stored), "generation", p.indexStore.Generation())
	return len(stored), nil
}

// embedChunks fills chunk vectors in pooled batches. Failed batches are
// logged and left unembedded.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*core.Chunk) {
	var wg sync.WaitGroup
	for start := 0; start < len(chunks); start += p.embedBatch {
		end := start + p.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			vectors, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				p.logger.Warn("embedding batch failed, chunks stay lexical-only",
					"chunks", len(batch), "err", err)
				return
			}
			if len(vectors) != len(batch) {
				p.logger.Warn("embedding result mismatch",
					"expected", len(batch), "received", len(vectors))
				return
			}
			for i := range batch {
				batch[i].Vector = core.NormalizeVector(vectors[i])
			}
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("error submitting embedding batch", "err", submitErr)
		}
	}
	wg.Wait()
}

// sourceChunkIDs lists the IDs currently indexed for a source.
func (p *Pipeline) sourceChunkIDs(sourceID string) []core.ID {
	snap := p.indexStore.Load()
	var ids []core.ID
	for _, chunk := range snap.Chunks(snap.IDs()...) {
		if chunk.SourceId == sourceID {
			ids = append(ids, chunk.Id)
		}
	}
	return ids
}

// staleIDs returns the old IDs that no chunk in the new set reuses.
func staleIDs(oldIDs []core.ID, chunks []*core.Chunk) []core.ID {
	kept := make(map[core.ID]bool, len(chunks))
	for _, chunk := range chunks {
		kept[chunk.Id] = true
	}
	var stale []core.ID
	for _, id := range oldIDs {
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	return stale
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
