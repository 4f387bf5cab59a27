package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
)

func testChunk(id core.ID, source string, vector []float32, text string) *core.Chunk {
	return &core.Chunk{
		Id:       id,
		SourceId: source,
		Text:     text,
		Vector:   vector,
		Tokens:   Tokenize(text),
	}
}

func buildSnapshot(t *testing.T, chunks ...*core.Chunk) *Snapshot {
	t.Helper()
	snap, err := newSnapshot(1, chunks)
	require.NoError(t, err)
	return snap
}

func TestSearchVector_Ranking(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permisos de construccion"),
		testChunk(2, "tomo-1", []float32{0.6, 0.8}, "distritos residenciales"),
		testChunk(3, "tomo-2", []float32{0, 1}, "zonas inundables"),
	)

	hits, err := snap.SearchVector([]float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, core.ID(1), hits[0].ChunkId)
	assert.InDelta(t, 1.0, hits[0].Score, 0.001)
	assert.Equal(t, core.ID(2), hits[1].ChunkId)
	assert.Equal(t, core.ID(3), hits[2].ChunkId)
}

func TestSearchVector_DimensionMismatch(t *testing.T) {
	snap := buildSnapshot(t, testChunk(1, "tomo-1", []float32{1, 0}, "texto"))

	_, err := snap.SearchVector([]float32{1, 0, 0}, 10, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSearchVector_EmptyIndex(t *testing.T) {
	snap := buildSnapshot(t)

	hits, err := snap.SearchVector([]float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_Filter(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permisos"),
		testChunk(2, "tomo-2", []float32{1, 0}, "distritos"),
	)

	hits, err := snap.SearchVector([]float32{1, 0}, 10, NewSourceFilter("tomo-2"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(2), hits[0].ChunkId)

	// An empty filter excludes everything and returns empty, not an error
	hits, err = snap.SearchVector([]float32{1, 0}, 10, NewSourceFilter())
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_SkipsUnembedded(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "embebido"),
		testChunk(2, "tomo-1", nil, "sin vector"),
	)

	hits, err := snap.SearchVector([]float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(1), hits[0].ChunkId)
}

func TestSearchLexical_TermFrequency(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", nil, "permiso permiso permiso de uso"),
		testChunk(2, "tomo-1", nil, "permiso de construccion"),
		testChunk(3, "tomo-1", nil, "distritos residenciales"),
	)

	hits := snap.SearchLexical([]string{"permiso"}, 10, nil)
	require.Len(t, hits, 2)

	assert.Equal(t, core.ID(1), hits[0].ChunkId, "higher term frequency ranks first")
	assert.Equal(t, 3.0, hits[0].Score)
	assert.Equal(t, core.ID(2), hits[1].ChunkId)
	assert.Equal(t, 1.0, hits[1].Score)
}

func TestSearchLexical_TieBreakByChunkID(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(9, "tomo-1", nil, "permiso unico"),
		testChunk(3, "tomo-1", nil, "permiso distinto"),
		testChunk(7, "tomo-1", nil, "permiso otro"),
	)

	hits := snap.SearchLexical([]string{"permiso"}, 10, nil)
	require.Len(t, hits, 3)

	// Equal scores order by ascending chunk ID
	assert.Equal(t, core.ID(3), hits[0].ChunkId)
	assert.Equal(t, core.ID(7), hits[1].ChunkId)
	assert.Equal(t, core.ID(9), hits[2].ChunkId)
}

func TestSearchLexical_FilterAndLimit(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", nil, "permiso"),
		testChunk(2, "tomo-2", nil, "permiso"),
		testChunk(3, "tomo-2", nil, "permiso"),
	)

	hits := snap.SearchLexical([]string{"permiso"}, 1, NewSourceFilter("tomo-2"))
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(2), hits[0].ChunkId)
}

func TestSearchLexical_NoMatch(t *testing.T) {
	snap := buildSnapshot(t, testChunk(1, "tomo-1", nil, "permiso"))

	hits := snap.SearchLexical([]string{"inexistente"}, 10, nil)
	assert.Empty(t, hits)
}

func TestNewSnapshot_MixedDimensions(t *testing.T) {
	_, err := newSnapshot(1, []*core.Chunk{
		testChunk(1, "tomo-1", []float32{1, 0}, "dos dimensiones"),
		testChunk(2, "tomo-1", []float32{1, 0, 0}, "tres dimensiones"),
	})
	assert.ErrorIs(t, err, core.ErrIndexCorrupt)
}

func TestSnapshotChunkLookup(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", nil, "uno"),
		testChunk(2, "tomo-1", nil, "dos"),
	)

	chunk, ok := snap.Chunk(1)
	require.True(t, ok)
	assert.Equal(t, "uno", chunk.Text)

	_, ok = snap.Chunk(99)
	assert.False(t, ok)

	chunks := snap.Chunks(2, 99, 1)
	assert.Len(t, chunks, 2)
}
