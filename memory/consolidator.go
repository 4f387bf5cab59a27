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

package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

const (
	// DefaultMergeThreshold is the similarity above which turns cluster
	// together and clusters absorb into existing long-term entries.
	DefaultMergeThreshold = 0.83

	// DefaultFrequencyThreshold is the minimum cluster size that earns a
	// long-term entry.
	DefaultFrequencyThreshold = 3

	// DefaultInterval is the background consolidation period.
	DefaultInterval = 10 * time.Minute

	// DefaultBatchSize bounds how many unconsolidated turns one pass reads.
	DefaultBatchSize = 256
)

// Consolidator distills recurring conversation turns into long-term
// entries. It runs off the query path: periodic passes read
// unconsolidated turns, cluster them, and upsert entries; the query
// pipeline only ever reads the results.
type Consolidator struct {
	turns     storage.TurnRepository
	longTerm  storage.LongTermRepository
	threshold float64
	frequency int
	batchSize int
	interval  time.Duration
	pool      *ants.Pool
	logger    *slog.Logger
}

// ConsolidatorOption configures a Consolidator.
type ConsolidatorOption func(*Consolidator) error

// WithMergeThreshold sets the clustering/merge similarity threshold.
// Must be in (0,1].
func WithMergeThreshold(threshold float64) ConsolidatorOption {
	return func(c *Consolidator) error {
		if threshold <= 0 || threshold > 1 {
			return ErrInvalidMergeThreshold
		}
		c.threshold = threshold
		return nil
	}
}

// WithFrequencyThreshold sets the minimum cluster size. Must be >= 1.
func WithFrequencyThreshold(frequency int) ConsolidatorOption {
	return func(c *Consolidator) error {
		if frequency < 1 {
			return ErrInvalidFrequencyThreshold
		}
		c.frequency = frequency
		return nil
	}
}

// WithInterval sets the background pass period.
func WithInterval(interval time.Duration) ConsolidatorOption {
	return func(c *Consolidator) error {
		if interval <= 0 {
			interval = DefaultInterval
		}
		c.interval = interval
		return nil
	}
}

// WithBatchSize sets how many turns one pass reads.
func WithBatchSize(size int) ConsolidatorOption {
	return func(c *Consolidator) error {
		if size < 1 {
			size = DefaultBatchSize
		}
		c.batchSize = size
		return nil
	}
}

// WithConsolidatorLogger sets a custom logger.
// Default is slog.Default().
func WithConsolidatorLogger(logger *slog.Logger) ConsolidatorOption {
	return func(c *Consolidator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewConsolidator creates a memory consolidator.
func NewConsolidator(
	turns storage.TurnRepository,
	longTerm storage.LongTermRepository,
	opts ...ConsolidatorOption,
) (*Consolidator, error) {
	if turns == nil {
		return nil, ErrTurnRepositoryRequired
	}
	if longTerm == nil {
		return nil, ErrLongTermRepositoryRequired
	}

	// Single nonblocking worker: overlapping ticks skip instead of queue.
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	c := &Consolidator{
		turns:     turns,
		longTerm:  longTerm,
		threshold: DefaultMergeThreshold,
		frequency: DefaultFrequencyThreshold,
		batchSize: DefaultBatchSize,
		interval:  DefaultInterval,
		pool:      pool,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			pool.Release()
			return nil, optErr
		}
	}

	return c, nil
}

// Report summarizes one consolidation pass.
type Report struct {
	Scanned      int // unconsolidated turns read
	Clusters     int // clusters meeting the frequency threshold
	Created      int // new long-term entries
	Merged       int // clusters absorbed into existing entries
	Consolidated int // turns marked consolidated
}

// cluster is an in-progress group of similar turns.
type cluster struct {
	centroid []float32
	members  []*core.ConversationTurn
}

// Consolidate runs one pass: greedy clustering of unconsolidated turns,
// then entry creation or nearest-centroid merge for every cluster that
// meets the frequency threshold. Reprocessing the same turns is safe:
// consumed turns are flagged, and a recurring cluster lands on its
// existing entry instead of minting a duplicate.
func (c *Consolidator) Consolidate(ctx context.Context) (*Report, error) {
	report := &Report{}

	turns, err := c.turns.GetUnconsolidatedTurns(ctx, c.batchSize)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(turns)
	if len(turns) == 0 {
		return report, nil
	}

	clusters := c.clusterTurns(turns)

	entries, err := c.longTerm.GetAllEntries(ctx)
	if err != nil {
		return nil, err
	}

	var upserts []*core.LongTermEntry
	var consumed []*core.ConversationTurn
	for _, cl := range clusters {
		if len(cl.members) < c.frequency {
			continue
		}
		report.Clusters++

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := nearestEntry(entries, cl.centroid, c.threshold)
		if entry == nil {
			entry = &core.LongTermEntry{
				ClusterId:      core.IDFromContent(cl.members[0].CombinedText()),
				Centroid:       cl.centroid,
				Representative: cl.members[0].Query,
				Members:        len(cl.members),
			}
			entries = append(entries, entry)
			report.Created++
		} else {
			for _, member := range cl.members {
				entry.Centroid = core.WeightedCentroid(entry.Centroid, entry.Members, member.Vector)
				entry.Members++
			}
			report.Merged++
		}

		upserts = append(upserts, entry)
		for _, member := range cl.members {
			member.Consolidated = true
			consumed = append(consumed, member)
		}
	}

	if len(upserts) > 0 {
		if _, err := c.longTerm.UpsertEntries(ctx, upserts...); err != nil {
			return nil, err
		}
	}
	if len(consumed) > 0 {
		if _, err := c.turns.UpdateTurns(ctx, consumed...); err != nil {
			return nil, err
		}
		report.Consolidated = len(consumed)
	}

	c.logger.Info("consolidation pass complete",
		"scanned", report.Scanned,
		"clusters", report.Clusters,
		"created", report.Created,
		"merged", report.Merged,
		"consolidated", report.Consolidated)
	return report, nil
}

// Run executes periodic passes until the context is done. A pass still
// in flight when the next tick fires is not queued behind it.
func (c *Consolidator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.pool.Submit(func() {
				if _, err := c.Consolidate(ctx); err != nil {
					c.logger.Error("consolidation pass failed", "err", err)
				}
			})
			if err != nil {
				c.logger.Debug("consolidation pass skipped", "err", err)
			}
		}
	}
}

// Release releases the worker pool. The consolidator should not be used
// after calling Release.
func (c *Consolidator) Release() {
	c.pool.Release()
}

// clusterTurns greedily assigns each embedded turn to the first cluster
// whose centroid is similar enough, updating the centroid as a
// count-weighted average, or opens a new cluster.
func (c *Consolidator) clusterTurns(turns []*core.ConversationTurn) []*cluster {
	var clusters []*cluster
	for _, turn := range turns {
		if len(turn.Vector) == 0 {
			continue
		}

		var home *cluster
		for _, cl := range clusters {
			if core.CosineSimilarity(cl.centroid, turn.Vector) >= c.threshold {
				home = cl
				break
			}
		}
		if home == nil {
			clusters = append(clusters, &cluster{
				centroid: core.NormalizeVector(turn.Vector),
				members:  []*core.ConversationTurn{turn},
			})
			continue
		}

		home.centroid = core.WeightedCentroid(home.centroid, len(home.members), turn.Vector)
		home.members = append(home.members, turn)
	}
	return clusters
}

// nearestEntry returns the existing entry whose centroid is most similar
// to the given one, or nil if none clears the threshold.
func nearestEntry(entries []*core.LongTermEntry, centroid []float32, threshold float64) *core.LongTermEntry {
	var best *core.LongTermEntry
	var bestScore float64
	for _, entry := range entries {
		score := core.CosineSimilarity(entry.Centroid, centroid)
		if score >= threshold && (best == nil || score > bestScore) {
			best = entry
			bestScore = score
		}
	}
	return best
}
