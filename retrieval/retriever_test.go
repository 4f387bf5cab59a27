package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

func testChunk(id core.ID, source string, vector []float32, text string) *core.Chunk {
	return &core.Chunk{
		Id:       id,
		SourceId: source,
		Text:     text,
		Vector:   vector,
		Tokens:   index.Tokenize(text),
	}
}

func buildSnapshot(t *testing.T, chunks ...*core.Chunk) *index.Snapshot {
	t.Helper()
	store := index.NewStore(0)
	snap, err := store.Rebuild(chunks)
	require.NoError(t, err)
	return snap
}

func TestNewRetriever(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := NewRetriever()
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("invalid fusion weight", func(t *testing.T) {
		_, err := NewRetriever(WithFusionWeight(1.5))
		assert.ErrorIs(t, err, ErrInvalidFusionWeight)

		_, err = NewRetriever(WithFusionWeight(-0.1))
		assert.ErrorIs(t, err, ErrInvalidFusionWeight)
	})

	t.Run("invalid fetch depth", func(t *testing.T) {
		_, err := NewRetriever(WithVectorFetchDepth(0))
		assert.ErrorIs(t, err, ErrInvalidFetchDepth)

		_, err = NewRetriever(WithLexicalFetchDepth(-1))
		assert.ErrorIs(t, err, ErrInvalidFetchDepth)
	})
}

// Chunk A matches the query vector exactly but appears in no lexical
// match; with α=0.5 its fused score is exactly 0.5.
func TestRetrieve_VectorOnlyMatchHalfWeight(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "zzz aaa"),
		testChunk(2, "tomo-1", []float32{0, 1}, "permiso construccion"),
		testChunk(3, "tomo-1", []float32{0.6, 0.8}, "permiso uso"),
	)

	r, err := NewRetriever(WithFusionWeight(0.5))
	require.NoError(t, err)

	query := core.Query{
		Text:   "permiso",
		Vector: []float32{1, 0},
		Tokens: []string{"permiso"},
	}

	candidates, err := r.Retrieve(context.Background(), snap, query, nil)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	var a *core.RetrievalCandidate
	for i := range candidates {
		if candidates[i].ChunkId == 1 {
			a = &candidates[i]
		}
	}
	require.NotNil(t, a)
	assert.InDelta(t, 0.5, a.FusedScore, 0.0001)
	assert.InDelta(t, 1.0, a.VectorScore, 0.0001)
	assert.Zero(t, a.LexicalScore)
}

func TestRetrieve_FusedScoreInRange(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permiso permiso"),
		testChunk(2, "tomo-1", []float32{0.9, 0.436}, "permiso uso"),
		testChunk(3, "tomo-1", []float32{0, 1}, "distrito residencial"),
	)

	for _, alpha := range []float64{0, 0.25, 0.5, 0.75, 1} {
		r, err := NewRetriever(WithFusionWeight(alpha))
		require.NoError(t, err)

		candidates, err := r.Retrieve(context.Background(), snap, core.Query{
			Vector: []float32{1, 0},
			Tokens: []string{"permiso", "distrito"},
		}, nil)
		require.NoError(t, err)

		for _, c := range candidates {
			assert.GreaterOrEqual(t, c.FusedScore, 0.0)
			assert.LessOrEqual(t, c.FusedScore, 1.0)
		}
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(5, "tomo-1", []float32{1, 0}, "permiso"),
		testChunk(2, "tomo-1", []float32{1, 0}, "permiso"),
		testChunk(9, "tomo-1", []float32{1, 0}, "permiso"),
	)

	r, err := NewRetriever()
	require.NoError(t, err)

	query := core.Query{Vector: []float32{1, 0}, Tokens: []string{"permiso"}}

	first, err := r.Retrieve(context.Background(), snap, query, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := r.Retrieve(context.Background(), snap, query, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Identical scores order by ascending chunk ID
	require.Len(t, first, 3)
	assert.Equal(t, core.ID(2), first[0].ChunkId)
	assert.Equal(t, core.ID(5), first[1].ChunkId)
	assert.Equal(t, core.ID(9), first[2].ChunkId)
}

func TestRetrieve_LexicalOnlyMode(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permiso construccion"),
		testChunk(2, "tomo-1", []float32{0, 1}, "distrito residencial"),
	)

	r, err := NewRetriever()
	require.NoError(t, err)

	// No query vector: embedding provider unavailable
	candidates, err := r.Retrieve(context.Background(), snap, core.Query{
		Tokens: []string{"permiso"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, core.ID(1), candidates[0].ChunkId)
	assert.Zero(t, candidates[0].VectorScore)
	assert.Equal(t, 1.0, candidates[0].LexicalScore)
}

func TestRetrieve_EmptyFilterYieldsEmpty(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permiso"),
	)

	r, err := NewRetriever()
	require.NoError(t, err)

	candidates, err := r.Retrieve(context.Background(), snap, core.Query{
		Vector: []float32{1, 0},
		Tokens: []string{"permiso"},
	}, index.NewSourceFilter())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRetrieve_SpecialistScope(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-6", []float32{1, 0}, "distrito residencial"),
		testChunk(2, "tomo-7", []float32{1, 0}, "distrito comercial"),
	)

	r, err := NewRetriever()
	require.NoError(t, err)

	candidates, err := r.Retrieve(context.Background(), snap, core.Query{
		Vector: []float32{1, 0},
		Tokens: []string{"distrito"},
	}, index.NewSourceFilter("tomo-6"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, core.ID(1), candidates[0].ChunkId)
}

func TestRetrieve_MonitorCallbacks(t *testing.T) {
	snap := buildSnapshot(t,
		testChunk(1, "tomo-1", []float32{1, 0}, "permiso"),
	)

	r, err := NewRetriever()
	require.NoError(t, err)

	mon := &recordingMonitor{}
	_, err = r.RetrieveWithMonitor(context.Background(), snap, core.Query{
		Vector: []float32{1, 0},
		Tokens: []string{"permiso"},
	}, nil, mon)
	require.NoError(t, err)

	assert.True(t, mon.started)
	assert.Equal(t, 1, mon.vectorHits)
	assert.Equal(t, 1, mon.lexicalHits)
	assert.Equal(t, 1, mon.fused)
	assert.True(t, mon.finished)
}

type recordingMonitor struct {
	started     bool
	vectorHits  int
	lexicalHits int
	fused       int
	finished    bool
}

func (m *recordingMonitor) Start(_ core.Query)                      { m.started = true }
func (m *recordingMonitor) AfterVectorSearch(h []index.Hit)         { m.vectorHits = len(h) }
func (m *recordingMonitor) AfterLexicalSearch(h []index.Hit)        { m.lexicalHits = len(h) }
func (m *recordingMonitor) AfterFusion(c []core.RetrievalCandidate) { m.fused = len(c) }
func (m *recordingMonitor) Finish(_ []core.RetrievalCandidate)      { m.finished = true }

func TestMinMaxNormalize(t *testing.T) {
	t.Run("single item normalizes to 1", func(t *testing.T) {
		norm := minMaxNormalize([]index.Hit{{ChunkId: 1, Score: 0.37}})
		assert.Equal(t, 1.0, norm[1])
	})

	t.Run("spread maps onto [0,1]", func(t *testing.T) {
		norm := minMaxNormalize([]index.Hit{
			{ChunkId: 1, Score: 2},
			{ChunkId: 2, Score: 6},
			{ChunkId: 3, Score: 4},
		})
		assert.Equal(t, 0.0, norm[1])
		assert.Equal(t, 1.0, norm[2])
		assert.Equal(t, 0.5, norm[3])
	})

	t.Run("all equal normalize to 1", func(t *testing.T) {
		norm := minMaxNormalize([]index.Hit{
			{ChunkId: 1, Score: 3},
			{ChunkId: 2, Score: 3},
		})
		assert.Equal(t, 1.0, norm[1])
		assert.Equal(t, 1.0, norm[2])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, minMaxNormalize(nil))
	})
}
