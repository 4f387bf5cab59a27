package index

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jpvia/normabot/core"
)

// Store holds the current index snapshot behind an atomic pointer.
// Readers call Load and work against one fully-consistent generation;
// writers build a new snapshot and publish it with a single swap, so a
// rebuild is never observable mid-flight.
type Store struct {
	snapshot atomic.Pointer[Snapshot]
	mu       sync.Mutex // serializes writers; readers never take it
	logger   *slog.Logger
}

// NewStore creates a Store seeded with an empty snapshot at the given
// generation. Pass the persisted generation so numbering survives
// restarts.
func NewStore(generation core.Generation) *Store {
	s := &Store{
		logger: slog.Default().With("component", "index"),
	}
	empty, _ := newSnapshot(generation, nil)
	s.snapshot.Store(empty)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.snapshot.Load()
}

// Generation returns the current snapshot's generation.
func (s *Store) Generation() core.Generation {
	return s.Load().generation
}

// Rebuild replaces the whole index with the given chunks and publishes
// the next generation. Returns the published snapshot.
func (s *Store) Rebuild(chunks []*core.Chunk) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot.Load().generation + 1
	snap, err := newSnapshot(next, chunks)
	if err != nil {
		return nil, err
	}

	s.snapshot.Store(snap)
	s.logger.Info("index rebuilt",
		"generation", uint64(snap.generation),
		"chunks", snap.Len(),
		"dimension", snap.dimension)
	return snap, nil
}

// Add publishes a new snapshot containing the current chunks plus the
// given ones. Chunks with an already-indexed ID are replaced.
func (s *Store) Add(chunks ...*core.Chunk) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot.Load()
	merged := make([]*core.Chunk, 0, len(current.ids)+len(chunks))
	replaced := make(map[core.ID]bool, len(chunks))
	for _, chunk := range chunks {
		replaced[chunk.Id] = true
	}
	for _, id := range current.ids {
		if !replaced[id] {
			merged = append(merged, current.chunks[id])
		}
	}
	merged = append(merged, chunks...)

	snap, err := newSnapshot(current.generation+1, merged)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(snap)
	return snap, nil
}

// Remove publishes a new snapshot without the given chunk IDs.
// Unknown IDs are ignored.
func (s *Store) Remove(ids ...core.ID) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot.Load()
	dropped := make(map[core.ID]bool, len(ids))
	for _, id := range ids {
		dropped[id] = true
	}

	kept := make([]*core.Chunk, 0, len(current.ids))
	for _, id := range current.ids {
		if !dropped[id] {
			kept = append(kept, current.chunks[id])
		}
	}

	// Removal cannot introduce a dimension conflict
	snap, _ := newSnapshot(current.generation+1, kept)
	s.snapshot.Store(snap)
	return snap
}
