// Copyright 2025 JPVia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

const (
	// DefaultConfidenceThreshold is the minimum combined score for a
	// specialist match; below it the query routes to the general fallback.
	DefaultConfidenceThreshold = 0.35

	// DefaultSimilarityWeight is the share of the combined score taken by
	// prototype similarity; the rest comes from keyword overlap.
	DefaultSimilarityWeight = 0.7
)

// Ranked is one scored entry of the alternative list.
type Ranked struct {
	SpecialistId string
	Score        float64
}

// Decision is the routing outcome. A nil SpecialistId means the general
// fallback: no profile cleared the confidence threshold and retrieval
// runs over the whole corpus.
type Decision struct {
	SpecialistId *string
	Confidence   float64
	Alternatives []Ranked
}

// profile is a SpecialistProfile prepared for scoring: keywords are
// tokenized once at load so routing matches the tokenizer's
// normalization. A multi-word keyword matches when all its tokens occur
// in the query.
type profile struct {
	core.SpecialistProfile
	folded [][]string
}

// profileSet is one immutable generation of loaded profiles, ordered by
// (priority, id) so score ties resolve without re-sorting per query.
type profileSet struct {
	profiles []profile
	byId     map[string]*profile
}

// Router classifies queries into domain specialists. Profiles are held
// as an immutable set behind an atomic pointer; Reload publishes a whole
// new set and never mutates the current one.
type Router struct {
	profiles  atomic.Pointer[profileSet]
	threshold float64
	simWeight float64
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router) error

// WithConfidenceThreshold sets the fallback threshold. Must be in [0,1].
func WithConfidenceThreshold(threshold float64) Option {
	return func(r *Router) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		r.threshold = threshold
		return nil
	}
}

// WithSimilarityWeight sets the prototype-similarity share of the
// combined score. Must be in [0,1].
func WithSimilarityWeight(weight float64) Option {
	return func(r *Router) error {
		if weight < 0 || weight > 1 {
			return ErrInvalidWeight
		}
		r.simWeight = weight
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRouter creates a router over the given profile set.
func NewRouter(profiles []core.SpecialistProfile, opts ...Option) (*Router, error) {
	r := &Router{
		threshold: DefaultConfidenceThreshold,
		simWeight: DefaultSimilarityWeight,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if err := r.Reload(profiles); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload validates and atomically publishes a new profile set. In-flight
// routing keeps using the set it started with.
func (r *Router) Reload(profiles []core.SpecialistProfile) error {
	if len(profiles) == 0 {
		return ErrNoProfiles
	}

	set := &profileSet{
		profiles: make([]profile, 0, len(profiles)),
		byId:     make(map[string]*profile, len(profiles)),
	}
	for i := range profiles {
		if err := core.ValidateProfile(&profiles[i]); err != nil {
			return err
		}

		folded := make([][]string, 0, len(profiles[i].Keywords))
		for _, kw := range profiles[i].Keywords {
			if parts := index.Tokenize(kw); len(parts) > 0 {
				folded = append(folded, parts)
			}
		}
		set.profiles = append(set.profiles, profile{
			SpecialistProfile: profiles[i],
			folded:            folded,
		})
	}

	slices.SortFunc(set.profiles, func(a, b profile) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	for i := range set.profiles {
		set.byId[set.profiles[i].Id] = &set.profiles[i]
	}

	r.profiles.Store(set)
	r.logger.Info("specialist profiles loaded", "count", len(set.profiles))
	return nil
}

// Route scores the query against every profile and picks the best one.
// Below the confidence threshold the decision carries a nil specialist.
// The alternative list covers all profiles, best first.
func (r *Router) Route(query core.Query) (*Decision, error) {
	if err := core.ValidateQueryText(query.Text); err != nil {
		return nil, err
	}

	set := r.profiles.Load()
	ranked := make([]Ranked, 0, len(set.profiles))
	for i := range set.profiles {
		ranked = append(ranked, Ranked{
			SpecialistId: set.profiles[i].Id,
			Score:        r.score(&set.profiles[i], query),
		})
	}

	// Stable sort: the set is already in priority order, so equal scores
	// keep the lower-priority-value profile first.
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	decision := &Decision{
		Confidence:   ranked[0].Score,
		Alternatives: ranked,
	}
	if decision.Confidence >= r.threshold {
		id := ranked[0].SpecialistId
		decision.SpecialistId = &id
	}
	return decision, nil
}

// Scope returns the corpus filter for a routing decision: the chosen
// specialist's sources, or nil (whole corpus) for the general fallback.
func (r *Router) Scope(decision *Decision) index.SourceFilter {
	if decision == nil || decision.SpecialistId == nil {
		return nil
	}
	set := r.profiles.Load()
	p, ok := set.byId[*decision.SpecialistId]
	if !ok || len(p.Sources) == 0 {
		return nil
	}
	return index.NewSourceFilter(p.Sources...)
}

// Profile returns the loaded profile for a specialist id.
func (r *Router) Profile(id string) (*core.SpecialistProfile, error) {
	set := r.profiles.Load()
	p, ok := set.byId[id]
	if !ok {
		return nil, ErrUnknownSpecialist
	}
	return &p.SpecialistProfile, nil
}

// Profiles returns the current profile set in priority order.
func (r *Router) Profiles() []core.SpecialistProfile {
	set := r.profiles.Load()
	out := make([]core.SpecialistProfile, 0, len(set.profiles))
	for i := range set.profiles {
		out = append(out, set.profiles[i].SpecialistProfile)
	}
	return out
}

// score combines prototype similarity and keyword overlap. When one
// signal is unavailable (query without a vector, profile without a
// prototype or without keywords) the other carries the full weight, so
// degraded lexical-only queries can still clear the threshold.
func (r *Router) score(p *profile, query core.Query) float64 {
	haveSim := len(query.Vector) > 0 && len(p.Prototype) > 0
	haveKw := len(query.Tokens) > 0 && len(p.folded) > 0

	sim := 0.0
	if haveSim {
		sim = core.CosineSimilarity(query.Vector, p.Prototype)
		if sim < 0 {
			sim = 0
		}
	}

	overlap := 0.0
	if haveKw {
		tokens := make(map[string]struct{}, len(query.Tokens))
		for _, token := range query.Tokens {
			tokens[token] = struct{}{}
		}
		matched := 0
		for _, kw := range p.folded {
			if containsAll(tokens, kw) {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(p.folded))
	}

	switch {
	case haveSim && haveKw:
		return r.simWeight*sim + (1-r.simWeight)*overlap
	case haveSim:
		return sim
	case haveKw:
		return overlap
	default:
		return 0
	}
}

func containsAll(tokens map[string]struct{}, parts []string) bool {
	for _, part := range parts {
		if _, ok := tokens[part]; !ok {
			return false
		}
	}
	return true
}
