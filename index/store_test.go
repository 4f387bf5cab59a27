package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpvia/normabot/core"
)

func TestStoreRebuild_BumpsGeneration(t *testing.T) {
	store := NewStore(5)
	assert.Equal(t, core.Generation(5), store.Generation())
	assert.Zero(t, store.Load().Len())

	snap, err := store.Rebuild([]*core.Chunk{
		testChunk(1, "tomo-1", []float32{1, 0}, "permisos"),
	})
	require.NoError(t, err)

	assert.Equal(t, core.Generation(6), snap.Generation())
	assert.Equal(t, 1, snap.Len())
	assert.Same(t, snap, store.Load())
}

func TestStoreRebuild_CorruptInputLeavesCurrentSnapshot(t *testing.T) {
	store := NewStore(0)
	_, err := store.Rebuild([]*core.Chunk{
		testChunk(1, "tomo-1", []float32{1, 0}, "dos"),
	})
	require.NoError(t, err)
	before := store.Load()

	_, err = store.Rebuild([]*core.Chunk{
		testChunk(1, "tomo-1", []float32{1, 0}, "dos"),
		testChunk(2, "tomo-1", []float32{1, 0, 0}, "tres"),
	})
	require.ErrorIs(t, err, core.ErrIndexCorrupt)

	assert.Same(t, before, store.Load(), "failed rebuild must not publish")
}

func TestStoreAdd_ReplacesById(t *testing.T) {
	store := NewStore(0)
	_, err := store.Add(testChunk(1, "tomo-1", []float32{1, 0}, "original"))
	require.NoError(t, err)

	_, err = store.Add(testChunk(1, "tomo-1", []float32{0, 1}, "reemplazo"))
	require.NoError(t, err)

	snap := store.Load()
	assert.Equal(t, 1, snap.Len())
	chunk, _ := snap.Chunk(1)
	assert.Equal(t, "reemplazo", chunk.Text)
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(0)
	_, err := store.Add(
		testChunk(1, "tomo-1", nil, "uno"),
		testChunk(2, "tomo-1", nil, "dos"),
	)
	require.NoError(t, err)

	snap := store.Remove(1, 99)
	assert.Equal(t, 1, snap.Len())
	_, ok := snap.Chunk(1)
	assert.False(t, ok)
	_, ok = snap.Chunk(2)
	assert.True(t, ok)
}

// A query racing a rebuild must observe either the old or the new
// generation in full, never a mixed state.
func TestStoreRebuild_ConcurrentReaders(t *testing.T) {
	store := NewStore(0)
	_, err := store.Rebuild([]*core.Chunk{
		testChunk(1, "tomo-1", []float32{1, 0}, "permiso uno"),
		testChunk(2, "tomo-1", []float32{0, 1}, "permiso dos"),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := store.Rebuild([]*core.Chunk{
				testChunk(1, "tomo-1", []float32{1, 0}, "permiso uno"),
				testChunk(2, "tomo-1", []float32{0, 1}, "permiso dos"),
				testChunk(3, "tomo-1", []float32{0.6, 0.8}, "permiso tres"),
			})
			if err != nil {
				t.Error(err)
				return
			}
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Load()
				// Whatever generation we got, it is internally complete:
				// every indexed ID resolves and every vector search works.
				n := snap.Len()
				if n != 2 && n != 3 {
					t.Errorf("observed partial snapshot with %d chunks", n)
					return
				}
				hits, err := snap.SearchVector([]float32{1, 0}, 10, nil)
				if err != nil {
					t.Error(err)
					return
				}
				if len(hits) != n {
					t.Errorf("snapshot reported %d chunks but search saw %d", n, len(hits))
					return
				}
			}
		}()
	}

	wg.Wait()
}
