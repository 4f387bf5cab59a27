package retrieval

import (
	"slices"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

// DefaultSimilarityCap is the rerank dedup threshold τ: two selected
// chunks may not be more similar than this unless the pool runs dry.
const DefaultSimilarityCap = 0.92

// Reranker applies maximal-marginal-relevance selection over fused
// candidates: relevance first, but near-duplicate chunks are pushed out
// in favor of diverse ones.
type Reranker struct {
	simCap float64
}

// RerankerOption configures a Reranker.
type RerankerOption func(*Reranker) error

// WithSimilarityCap sets the dedup threshold τ. Must be in (0,1].
func WithSimilarityCap(threshold float64) RerankerOption {
	return func(r *Reranker) error {
		if threshold <= 0 || threshold > 1 {
			return ErrInvalidSimilarityCap
		}
		r.simCap = threshold
		return nil
	}
}

// NewReranker creates a new reranker.
func NewReranker(opts ...RerankerOption) (*Reranker, error) {
	r := &Reranker{
		simCap: DefaultSimilarityCap,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Rerank selects up to n candidates. Each round picks the remaining
// candidate with the highest (fused score − max similarity to the
// already-selected set), skipping candidates that exceed the similarity
// cap against any selected chunk. If fewer than n mutually-dissimilar
// candidates exist, the remainder is filled with the highest-scored
// leftovers. Deterministic given identical inputs.
func (r *Reranker) Rerank(snap *index.Snapshot, candidates []core.RetrievalCandidate, n int) []core.RetrievalCandidate {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	selected := make([]core.RetrievalCandidate, 0, n)
	remaining := slices.Clone(candidates)

	for len(selected) < n && len(remaining) > 0 {
		bestIdx := -1
		bestMargin := 0.0

		for i, candidate := range remaining {
			maxSim := r.maxSimilarityToSelected(snap, candidate.ChunkId, selected)
			if maxSim > r.simCap {
				continue
			}
			margin := candidate.FusedScore - maxSim
			if bestIdx == -1 || margin > bestMargin ||
				(margin == bestMargin && candidate.ChunkId < remaining[bestIdx].ChunkId) {
				bestIdx = i
				bestMargin = margin
			}
		}

		if bestIdx == -1 {
			// Pool exhausted under the cap: fill with leftovers, which
			// are already in fused order.
			for _, candidate := range remaining {
				if len(selected) >= n {
					break
				}
				selected = append(selected, candidate)
			}
			break
		}

		selected = append(selected, remaining[bestIdx])
		remaining = slices.Delete(remaining, bestIdx, bestIdx+1)
	}

	return selected
}

// maxSimilarityToSelected returns the highest cosine similarity between
// a candidate and any already-selected chunk. Chunks without vectors
// contribute 0.
func (r *Reranker) maxSimilarityToSelected(snap *index.Snapshot, id core.ID, selected []core.RetrievalCandidate) float64 {
	chunk, ok := snap.Chunk(id)
	if !ok || len(chunk.Vector) == 0 {
		return 0
	}

	maxSim := 0.0
	for _, s := range selected {
		other, ok := snap.Chunk(s.ChunkId)
		if !ok || len(other.Vector) == 0 {
			continue
		}
		sim := core.CosineSimilarity(chunk.Vector, other.Vector)
		if sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim
}
