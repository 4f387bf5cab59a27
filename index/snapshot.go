package index

import (
	"slices"

	"github.com/jpvia/normabot/core"
)

// Hit is an index search result: a chunk reference and its raw
// per-modality score (cosine similarity or term frequency).
type Hit struct {
	ChunkId core.ID
	Score   float64
}

// SourceFilter restricts a search to chunks from the given sources.
// A nil filter admits everything; an empty filter admits nothing.
type SourceFilter map[string]struct{}

// NewSourceFilter builds a filter from source IDs.
func NewSourceFilter(sources ...string) SourceFilter {
	filter := make(SourceFilter, len(sources))
	for _, s := range sources {
		filter[s] = struct{}{}
	}
	return filter
}

func (f SourceFilter) admits(chunk *core.Chunk) bool {
	if f == nil {
		return true
	}
	_, ok := f[chunk.SourceId]
	return ok
}

// Snapshot is one immutable generation of the embedding and lexical
// indexes. Queries against a snapshot never observe mutation; the Store
// publishes new snapshots wholesale.
type Snapshot struct {
	generation core.Generation
	dimension  int
	chunks     map[core.ID]*core.Chunk
	ids        []core.ID                  // ascending, for deterministic scans
	postings   map[string]map[core.ID]int // term -> chunk -> occurrences
}

func newSnapshot(generation core.Generation, chunks []*core.Chunk) (*Snapshot, error) {
	s := &Snapshot{
		generation: generation,
		chunks:     make(map[core.ID]*core.Chunk, len(chunks)),
		postings:   make(map[string]map[core.ID]int),
	}

	for _, chunk := range chunks {
		if len(chunk.Vector) > 0 {
			if s.dimension == 0 {
				s.dimension = len(chunk.Vector)
			} else if len(chunk.Vector) != s.dimension {
				// Mixed dimensions mean the corpus was embedded against
				// different models; the snapshot cannot be trusted.
				return nil, core.ErrIndexCorrupt
			}
		}
		s.chunks[chunk.Id] = chunk
		s.ids = append(s.ids, chunk.Id)

		for _, token := range chunk.Tokens {
			posting := s.postings[token]
			if posting == nil {
				posting = make(map[core.ID]int)
				s.postings[token] = posting
			}
			posting[chunk.Id]++
		}
	}

	slices.Sort(s.ids)
	return s, nil
}

// Generation returns the snapshot's generation number.
func (s *Snapshot) Generation() core.Generation {
	return s.generation
}

// Dimension returns the embedding dimension, 0 if no chunk is embedded.
func (s *Snapshot) Dimension() int {
	return s.dimension
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int {
	return len(s.chunks)
}

// IDs returns the indexed chunk IDs in ascending order.
func (s *Snapshot) IDs() []core.ID {
	return slices.Clone(s.ids)
}

// Chunk returns an indexed chunk by ID.
func (s *Snapshot) Chunk(id core.ID) (*core.Chunk, bool) {
	chunk, ok := s.chunks[id]
	return chunk, ok
}

// Chunks resolves IDs to chunks, skipping unknown IDs.
func (s *Snapshot) Chunks(ids ...core.ID) []*core.Chunk {
	result := make([]*core.Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := s.chunks[id]; ok {
			result = append(result, chunk)
		}
	}
	return result
}

// SearchVector returns the top-k chunks by cosine similarity to the query
// vector, restricted to the filter. An empty index returns an empty
// result. A query vector whose dimension differs from the index's fails
// with ErrDimensionMismatch.
func (s *Snapshot) SearchVector(vector []float32, k int, filter SourceFilter) ([]Hit, error) {
	if s.dimension == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, core.ErrDimensionMismatch
	}

	var hits []Hit
	for _, id := range s.ids {
		chunk := s.chunks[id]
		if len(chunk.Vector) == 0 || !filter.admits(chunk) {
			continue
		}
		hits = append(hits, Hit{
			ChunkId: id,
			Score:   core.CosineSimilarity(vector, chunk.Vector),
		})
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchLexical returns the top-k chunks by term frequency of the query
// tokens, restricted to the filter. Ties break by ascending chunk ID.
func (s *Snapshot) SearchLexical(tokens []string, k int, filter SourceFilter) []Hit {
	scores := make(map[core.ID]float64)
	for _, token := range tokens {
		for id, count := range s.postings[token] {
			if !filter.admits(s.chunks[id]) {
				continue
			}
			scores[id] += float64(count)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ChunkId: id, Score: score})
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// sortHits orders by score descending, ties by ascending chunk ID so
// identical inputs always produce identical orderings.
func sortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})
}
