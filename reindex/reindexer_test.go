package reindex

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/ai/mock"
	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
	"github.com/jpvia/normabot/storage"
	badgerstore "github.com/jpvia/normabot/storage/badger"
)

func fastConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
}

func newTestRepositories(t *testing.T) (storage.ChunkRepository, *badgerstore.GenerationRepository) {
	t.Helper()
	chunkRepo, _, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return chunkRepo, badgerstore.NewGenerationRepository(backend)
}

func seedChunks(t *testing.T, repo storage.ChunkRepository, texts ...string) []*core.Chunk {
	t.Helper()
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:       core.IDFromContent(text),
			SourceId: "tomo-6",
			Text:     text,
			Tokens:   index.Tokenize(text),
		}
	}
	_, err := repo.AddChunks(context.Background(), chunks...)
	require.NoError(t, err)
	return chunks
}

func TestNewReindexer(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(0)
	embedder := mock.NewMockEmbedder()

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewReindexer(nil, genRepo, store, embedder, nil, nil)
		assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	})

	t.Run("nil generation repository", func(t *testing.T) {
		_, err := NewReindexer(chunkRepo, nil, store, embedder, nil, nil)
		assert.ErrorIs(t, err, ErrGenerationRepositoryRequired)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewReindexer(chunkRepo, genRepo, nil, embedder, nil, nil)
		assert.ErrorIs(t, err, ErrIndexRequired)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewReindexer(chunkRepo, genRepo, store, nil, nil, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("nil config and progress use defaults", func(t *testing.T) {
		r, err := NewReindexer(chunkRepo, genRepo, store, embedder, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().BatchSize, r.config.BatchSize)
	})
}

func TestRun(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(0)
	ctx := context.Background()

	seedChunks(t, chunkRepo,
		"Artículo 6.1. Los distritos residenciales limitan la densidad.",
		"Artículo 6.2. Los distritos comerciales permiten usos mixtos.",
		"Artículo 6.3. Los distritos industriales requieren amortiguamiento.",
	)

	var buf bytes.Buffer
	r, err := NewReindexer(chunkRepo, genRepo, store, mock.NewMockEmbedder(), fastConfig(), &buf)
	require.NoError(t, err)

	gen, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Generation(1), gen)

	snap := store.Load()
	assert.Equal(t, 3, snap.Len())
	assert.Positive(t, snap.Dimension(), "rebuilt index carries vectors")

	persisted, err := genRepo.LoadGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen, persisted, "generation survives restarts")

	stored, err := chunkRepo.GetAllChunks(ctx)
	require.NoError(t, err)
	for _, chunk := range stored {
		assert.NotEmpty(t, chunk.Vector, "chunk %d re-embedded", uint64(chunk.Id))
	}

	assert.Contains(t, buf.String(), "Reindex complete")
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(0)

	seedChunks(t, chunkRepo, "Artículo 9.1. Las zonas inundables requieren estudios hidrológicos.")

	failures := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if failures < 2 {
			failures++
			return nil, errors.New("proveedor no disponible")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	r, err := NewReindexer(chunkRepo, genRepo, store, embedder, fastConfig(), nil)
	require.NoError(t, err)

	gen, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Generation(1), gen)
	assert.Equal(t, 2, failures, "first two attempts failed before succeeding")
}

func TestRun_PermanentFailureLeavesIndexUntouched(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(0)
	ctx := context.Background()

	seedChunks(t, chunkRepo, "Artículo 2.1. Disposiciones generales del reglamento.")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("proveedor no disponible")
	}

	r, err := NewReindexer(chunkRepo, genRepo, store, embedder, fastConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)

	assert.Equal(t, core.Generation(0), store.Generation(), "failed run publishes nothing")
	persisted, err := genRepo.LoadGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Generation(0), persisted)
}

func TestRun_CountMismatch(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(0)

	seedChunks(t, chunkRepo,
		"Artículo 4.1. Las licencias se renuevan anualmente.",
		"Artículo 4.2. Las licencias vencidas se cancelan.",
	)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	r, err := NewReindexer(chunkRepo, genRepo, store, embedder, fastConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestRun_EmptyCorpus(t *testing.T) {
	chunkRepo, genRepo := newTestRepositories(t)
	store := index.NewStore(7)

	var buf bytes.Buffer
	r, err := NewReindexer(chunkRepo, genRepo, store, mock.NewMockEmbedder(), fastConfig(), &buf)
	require.NoError(t, err)

	gen, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.Generation(7), gen, "empty corpus keeps the current generation")
	assert.Contains(t, buf.String(), "No chunks to reindex")
}
