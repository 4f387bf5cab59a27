package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := t.TempDir()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	err = backend.Close()
	require.NoError(t, err)
	assert.True(t, backend.IsClosed())
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	called := false
	err = backend.WithTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestFindSimilarTurns_NoTurns(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	results, err := backend.FindSimilarTurns(context.Background(), []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilarTurns_WithTurns(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	// Close match, orthogonal, and no-vector turns
	_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
		SessionId: "s1",
		Query:     "¿Qué es una variación?",
		Response:  "Una autorización excepcional.",
		Vector:    []float32{1, 0, 0},
	})
	require.NoError(t, err)

	_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
		SessionId: "s1",
		Query:     "¿Cuál es el horario de la oficina?",
		Response:  "De 8am a 4:30pm.",
		Vector:    []float32{0, 1, 0},
	})
	require.NoError(t, err)

	_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
		SessionId: "s1",
		Query:     "hola",
		Response:  "Saludos.",
	})
	require.NoError(t, err)

	results, err := backend.FindSimilarTurns(ctx, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "¿Qué es una variación?", results[0].Turn.Query)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
}

func TestFindSimilarTurns_ThresholdAndLimit(t *testing.T) {
	_, turnRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	vectors := [][]float32{
		{1, 0},
		{0.9, 0.436},
		{0.6, 0.8},
		{0, 1},
	}
	for i, v := range vectors {
		_, err = turnRepo.AppendTurn(ctx, &core.ConversationTurn{
			SessionId: "s1",
			Query:     string(rune('a' + i)),
			Response:  "r",
			Vector:    v,
		})
		require.NoError(t, err)
	}

	results, err := backend.FindSimilarTurns(ctx, []float32{1, 0}, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Highest similarity first
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.GreaterOrEqual(t, results[1].Score, 0.5)
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"mismatched lengths", []float32{1, 1, 1}, []float32{1, 1}, 2.0},
		{"empty vectors", []float32{}, []float32{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, dotProduct(tt.a, tt.b), 0.0001)
		})
	}
}
