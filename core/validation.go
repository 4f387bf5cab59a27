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


package core

import (
	"fmt"
	"time"
)

// MaxQueryBytes bounds the size of an accepted query.
const MaxQueryBytes = 8 * 1024

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - SourceId must not be empty
//   - Offset must not be negative
//
// NOT validated (populated by processors):
//   - Vector (empty until the embedding processor runs)
//   - Tokens (empty until tokenized)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.SourceId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySource)
	}

	if chunk.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidChunk, chunk.Offset)
	}

	return nil
}

// ValidateTurn validates a ConversationTurn according to domain rules.
//
// Validation rules:
//   - SessionId must not be empty
//   - Query must not be empty
//   - Timestamp must not be in the future
func ValidateTurn(turn *ConversationTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}

	if turn.SessionId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptySession)
	}

	if turn.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyText)
	}

	if !IsValidTimestamp(turn.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateProfile validates a SpecialistProfile according to domain rules.
// A profile needs an id and at least one routing signal (keywords or a
// prototype embedding).
func ValidateProfile(profile *SpecialistProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}

	if profile.Id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidProfile)
	}

	if len(profile.Keywords) == 0 && len(profile.Prototype) == 0 {
		return fmt.Errorf("%w: profile %q has neither keywords nor a prototype", ErrInvalidProfile, profile.Id)
	}

	return nil
}

// ValidateQueryText checks raw query input before analysis.
func ValidateQueryText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if len(text) > MaxQueryBytes {
		return fmt.Errorf("%w: query exceeds %d bytes", ErrInvalidQuery, MaxQueryBytes)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
