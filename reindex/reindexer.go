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

package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jpvia/normabot/ai"
	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
	"github.com/jpvia/normabot/storage"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of chunks embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer re-embeds the whole corpus and publishes it as the next
// index generation. The old generation keeps serving queries until the
// new snapshot swaps in; a failed run leaves it untouched.
type Reindexer struct {
	chunks      storage.ChunkRepository
	generations storage.GenerationRepository
	indexStore  *index.Store
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
}

// NewReindexer creates a reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(
	chunks storage.ChunkRepository,
	generations storage.GenerationRepository,
	indexStore *index.Store,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*Reindexer, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if generations == nil {
		return nil, ErrGenerationRepositoryRequired
	}
	if indexStore == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		chunks:      chunks,
		generations: generations,
		indexStore:  indexStore,
		embedder:    embedder,
		config:      config,
		progress:    progress,
	}, nil
}

// Run re-embeds every stored chunk in batches and publishes the result
// as a new index generation, persisting the generation number.
func (r *Reindexer) Run(ctx context.Context) (core.Generation, error) {
	all, err := r.chunks.GetAllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(all) == 0 {
		fmt.Fprintf(r.progress, "No chunks to reindex (empty corpus)\n")
		return r.indexStore.Generation(), nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d)\n",
		len(all), r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, len(all), r.config.ReportInterval)

	for start := 0; start < len(all); start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > len(all) {
			end = len(all)
		}
		if err := r.processBatch(ctx, all[start:end]); err != nil {
			return 0, err
		}
		tracker.Add(end - start)
	}
	tracker.Finish()

	snap, err := r.indexStore.Rebuild(all)
	if err != nil {
		return 0, fmt.Errorf("failed to publish rebuilt index: %w", err)
	}
	if err := r.generations.SaveGeneration(ctx, snap.Generation()); err != nil {
		return 0, fmt.Errorf("failed to persist generation: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Generation %d, %d chunks in %v (%.1f chunks/sec)\n",
		uint64(snap.Generation()), len(all), elapsed.Round(time.Second),
		float64(len(all))/elapsed.Seconds())
	return snap.Generation(), nil
}

// processBatch embeds one batch with retry and persists the vectors.
func (r *Reindexer) processBatch(ctx context.Context, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("%w: batch failed after %d attempts: %w",
			core.ErrEmbeddingUnavailable, r.config.MaxRetries, err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	for i := range batch {
		batch[i].Vector = core.NormalizeVector(vectors[i])
	}

	if _, err := r.chunks.AddChunks(ctx, batch...); err != nil {
		return fmt.Errorf("failed to persist embedded chunks: %w", err)
	}
	return nil
}
