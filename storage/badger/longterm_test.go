package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

func TestLongTermUpsert_CreateAndMerge(t *testing.T) {
	_, _, longTermRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	entry := &core.LongTermEntry{
		ClusterId:      core.IDFromContent("cluster-a"),
		Centroid:       []float32{1, 0},
		Representative: "Pregunta: ¿Qué es una variación?\nRespuesta: Una autorización excepcional.",
		Members:        3,
	}

	_, err = longTermRepo.UpsertEntries(ctx, entry)
	require.NoError(t, err)
	created := entry.CreatedAt
	require.False(t, created.IsZero())

	// Merge: same cluster, updated centroid and member count
	entry.Centroid = []float32{0.8, 0.6}
	entry.Members = 4
	_, err = longTermRepo.UpsertEntries(ctx, entry)
	require.NoError(t, err)

	got, err := longTermRepo.GetEntry(ctx, entry.ClusterId)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Members)
	assert.Equal(t, []float32{0.8, 0.6}, got.Centroid)
	assert.True(t, got.CreatedAt.Equal(created), "CreatedAt survives merges")
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestLongTermGetEntry_NotFound(t *testing.T) {
	_, _, longTermRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = longTermRepo.GetEntry(context.Background(), 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLongTermGetAllEntries(t *testing.T) {
	_, _, longTermRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	entries := []*core.LongTermEntry{
		{ClusterId: core.IDFromContent("a"), Centroid: []float32{1, 0}, Representative: "a", Members: 3},
		{ClusterId: core.IDFromContent("b"), Centroid: []float32{0, 1}, Representative: "b", Members: 5},
	}
	_, err = longTermRepo.UpsertEntries(ctx, entries...)
	require.NoError(t, err)

	all, err := longTermRepo.GetAllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGenerationCheckpoint(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewGenerationRepository(backend)
	ctx := context.Background()

	// No checkpoint yet
	gen, err := repo.LoadGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Generation(0), gen)

	require.NoError(t, repo.SaveGeneration(ctx, 7))

	gen, err = repo.LoadGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Generation(7), gen)

	// Overwrite with a newer generation
	require.NoError(t, repo.SaveGeneration(ctx, 8))
	gen, err = repo.LoadGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Generation(8), gen)
}
