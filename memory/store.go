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
	"slices"
	"time"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/storage"
)

const (
	// DefaultRecentWindow is how many prior turns feed the answer context.
	DefaultRecentWindow = 5

	// DefaultSessionCap bounds how many turns a session retains.
	DefaultSessionCap = 50

	// DefaultHorizon is the retention age for conversation turns.
	DefaultHorizon = 90 * 24 * time.Hour

	// DefaultMinSimilarity is the floor below which prior turns are not
	// considered related to the current query.
	DefaultMinSimilarity = 0.3
)

// Store is the conversational memory: an append-only turn log with
// windowed recall, similarity recall, and age/cap eviction.
type Store struct {
	turns         storage.TurnRepository
	window        int
	sessionCap    int
	horizon       time.Duration
	minSimilarity float32
	logger        *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store) error

// WithRecentWindow sets the default recall window.
func WithRecentWindow(window int) StoreOption {
	return func(s *Store) error {
		if window < 1 {
			window = 1
		}
		s.window = window
		return nil
	}
}

// WithSessionCap sets the per-session turn cap. Must be positive.
func WithSessionCap(maxTurns int) StoreOption {
	return func(s *Store) error {
		if maxTurns < 1 {
			return ErrInvalidSessionCap
		}
		s.sessionCap = maxTurns
		return nil
	}
}

// WithHorizon sets the retention age. Must be positive.
func WithHorizon(horizon time.Duration) StoreOption {
	return func(s *Store) error {
		if horizon <= 0 {
			return ErrInvalidHorizon
		}
		s.horizon = horizon
		return nil
	}
}

// WithMinSimilarity sets the similarity recall floor.
func WithMinSimilarity(floor float32) StoreOption {
	return func(s *Store) error {
		s.minSimilarity = floor
		return nil
	}
}

// WithStoreLogger sets a custom logger.
// Default is slog.Default().
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore creates a conversational memory store over a turn repository.
func NewStore(turns storage.TurnRepository, opts ...StoreOption) (*Store, error) {
	if turns == nil {
		return nil, ErrTurnRepositoryRequired
	}

	s := &Store{
		turns:         turns,
		window:        DefaultRecentWindow,
		sessionCap:    DefaultSessionCap,
		horizon:       DefaultHorizon,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Append validates and appends a turn, then enforces the session cap so a
// chatty session cannot grow without bound.
func (s *Store) Append(ctx context.Context, turn *core.ConversationTurn) (*core.ConversationTurn, error) {
	if err := core.ValidateTurn(turn); err != nil {
		return nil, err
	}

	appended, err := s.turns.AppendTurn(ctx, turn)
	if err != nil {
		return nil, err
	}

	evicted, err := s.turns.EvictSessionToCap(ctx, turn.SessionId, s.sessionCap)
	if err != nil {
		// The turn is already durable; a failed trim is not fatal.
		s.logger.Warn("session cap eviction failed", "session", turn.SessionId, "err", err)
		return appended, nil
	}
	if evicted > 0 {
		s.logger.Debug("session trimmed", "session", turn.SessionId, "evicted", evicted)
	}
	return appended, nil
}

// Recent returns up to window prior turns of a session in chronological
// order. window <= 0 uses the configured default.
func (s *Store) Recent(ctx context.Context, sessionID string, window int) ([]*core.ConversationTurn, error) {
	if window <= 0 {
		window = s.window
	}

	turns, err := s.turns.GetRecentTurns(ctx, sessionID, window)
	if err != nil {
		return nil, err
	}

	// GetRecentTurns yields newest first
	slices.Reverse(turns)
	return turns, nil
}

// Similar returns up to k prior turns related to the query embedding,
// best first. With a session id the search is scoped to that session;
// without one it spans the whole log.
func (s *Store) Similar(ctx context.Context, sessionID string, vector []float32, k int) ([]*core.ScoredTurn, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	if sessionID == "" {
		return s.turns.FindSimilarTurns(ctx, vector, s.minSimilarity, k)
	}

	turns, err := s.turns.GetSessionTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var scored []*core.ScoredTurn
	for _, turn := range turns {
		if len(turn.Vector) == 0 {
			continue
		}
		score := core.CosineSimilarity(vector, turn.Vector)
		if score < float64(s.minSimilarity) {
			continue
		}
		scored = append(scored, &core.ScoredTurn{Turn: turn, Score: score})
	}

	slices.SortFunc(scored, func(a, b *core.ScoredTurn) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Evict applies the age horizon across the whole log. Returns the number
// of turns removed.
func (s *Store) Evict(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.horizon)
	evicted, err := s.turns.EvictOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		s.logger.Info("aged turns evicted", "evicted", evicted, "cutoff", cutoff)
	}
	return evicted, nil
}
