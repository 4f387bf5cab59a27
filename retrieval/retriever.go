package retrieval

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

const (
	// DefaultFusionWeight leans semantic: the corpus rewards meaning over
	// exact wording for regulatory questions.
	DefaultFusionWeight = 0.6

	// DefaultFetchDepth is the per-modality top-K pulled before fusion.
	DefaultFetchDepth = 20
)

// Retriever fuses embedding-index and lexical-index results into one
// ranked candidate list. It is stateless: every call works against the
// snapshot it is given, so concurrent queries never share mutable state.
type Retriever struct {
	alpha    float64
	vectorK  int
	lexicalK int
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithFusionWeight sets the fusion weight α: the share of the fused
// score contributed by vector similarity. Must be in [0,1].
func WithFusionWeight(alpha float64) Option {
	return func(r *Retriever) error {
		if alpha < 0 || alpha > 1 {
			return ErrInvalidFusionWeight
		}
		r.alpha = alpha
		return nil
	}
}

// WithVectorFetchDepth sets the top-K fetched from the embedding index.
func WithVectorFetchDepth(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return ErrInvalidFetchDepth
		}
		r.vectorK = k
		return nil
	}
}

// WithLexicalFetchDepth sets the top-K fetched from the lexical index.
func WithLexicalFetchDepth(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return ErrInvalidFetchDepth
		}
		r.lexicalK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new hybrid retriever.
func NewRetriever(opts ...Option) (*Retriever, error) {
	r := &Retriever{
		alpha:    DefaultFusionWeight,
		vectorK:  DefaultFetchDepth,
		lexicalK: DefaultFetchDepth,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve runs hybrid retrieval against the given snapshot.
// An empty query vector skips the vector modality (lexical-only mode);
// a filter excluding the whole corpus yields an empty list, not an error.
func (r *Retriever) Retrieve(ctx context.Context, snap *index.Snapshot, query core.Query, filter index.SourceFilter) ([]core.RetrievalCandidate, error) {
	return r.RetrieveWithMonitor(ctx, snap, query, filter, nil)
}

// RetrieveWithMonitor runs hybrid retrieval with monitoring callbacks
// at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, snap *index.Snapshot, query core.Query, filter index.SourceFilter, monitor Monitor) ([]core.RetrievalCandidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var vectorHits []index.Hit
	if len(query.Vector) > 0 {
		var err error
		vectorHits, err = snap.SearchVector(query.Vector, r.vectorK, filter)
		if err != nil {
			r.logger.Error("vector search failed", "err", err)
			return nil, err
		}
	}
	monitor.AfterVectorSearch(vectorHits)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lexicalHits := snap.SearchLexical(query.Tokens, r.lexicalK, filter)
	monitor.AfterLexicalSearch(lexicalHits)

	candidates := r.fuse(vectorHits, lexicalHits)
	monitor.AfterFusion(candidates)
	monitor.Finish(candidates)

	return candidates, nil
}

// fuse min-max normalizes each score list independently, combines them
// with the fusion weight, and deduplicates by chunk ID. A chunk present
// in only one list contributes 0 for the missing modality.
func (r *Retriever) fuse(vectorHits, lexicalHits []index.Hit) []core.RetrievalCandidate {
	vectorNorm := minMaxNormalize(vectorHits)
	lexicalNorm := minMaxNormalize(lexicalHits)

	seen := make(map[core.ID]*core.RetrievalCandidate)
	order := make([]core.ID, 0, len(vectorNorm)+len(lexicalNorm))

	for _, hit := range vectorHits {
		if _, ok := seen[hit.ChunkId]; !ok {
			seen[hit.ChunkId] = &core.RetrievalCandidate{ChunkId: hit.ChunkId}
			order = append(order, hit.ChunkId)
		}
		seen[hit.ChunkId].VectorScore = vectorNorm[hit.ChunkId]
	}
	for _, hit := range lexicalHits {
		if _, ok := seen[hit.ChunkId]; !ok {
			seen[hit.ChunkId] = &core.RetrievalCandidate{ChunkId: hit.ChunkId}
			order = append(order, hit.ChunkId)
		}
		seen[hit.ChunkId].LexicalScore = lexicalNorm[hit.ChunkId]
	}

	candidates := make([]core.RetrievalCandidate, 0, len(order))
	for _, id := range order {
		c := seen[id]
		c.FusedScore = r.alpha*c.VectorScore + (1-r.alpha)*c.LexicalScore
		candidates = append(candidates, *c)
	}

	// Fused score descending, ties by ascending chunk ID
	slices.SortFunc(candidates, func(a, b core.RetrievalCandidate) int {
		if a.FusedScore > b.FusedScore {
			return -1
		}
		if a.FusedScore < b.FusedScore {
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

	return candidates
}

// minMaxNormalize maps a batch of scores onto [0,1]. A single-item
// batch normalizes to 1.0; an all-equal batch likewise.
func minMaxNormalize(hits []index.Hit) map[core.ID]float64 {
	norm := make(map[core.ID]float64, len(hits))
	if len(hits) == 0 {
		return norm
	}

	lo, hi := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < lo {
			lo = hit.Score
		}
		if hit.Score > hi {
			hi = hit.Score
		}
	}

	if hi == lo {
		for _, hit := range hits {
			norm[hit.ChunkId] = 1.0
		}
		return norm
	}

	for _, hit := range hits {
		norm[hit.ChunkId] = (hit.Score - lo) / (hi - lo)
	}
	return norm
}
