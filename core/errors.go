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

import "errors"

// Failure taxonomy shared across the engine.
var (
	// ErrInvalidQuery indicates an empty or oversized query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDimensionMismatch indicates a vector whose dimension differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable indicates the generation provider failed or is unreachable.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")

	// ErrIndexCorrupt indicates an index failed its integrity check.
	ErrIndexCorrupt = errors.New("index integrity check failed")

	// ErrTimeout indicates the request deadline expired mid-pipeline.
	ErrTimeout = errors.New("request deadline exceeded")
)

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidTurn indicates a ConversationTurn failed validation.
	ErrInvalidTurn = errors.New("invalid conversation turn")

	// ErrInvalidProfile indicates a SpecialistProfile failed validation.
	ErrInvalidProfile = errors.New("invalid specialist profile")

	// ErrEmptyText indicates a required text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptySource indicates a chunk without a source id.
	ErrEmptySource = errors.New("source id cannot be empty")

	// ErrEmptySession indicates a turn without a session id.
	ErrEmptySession = errors.New("session id cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)

// DegradeReason is the machine-readable reason attached to a degraded
// response. A degraded response still carries a best-effort answer.
type DegradeReason string

const (
	// DegradeNone marks a fully healthy response.
	DegradeNone DegradeReason = ""

	// DegradeEmbeddingUnavailable marks lexical-only retrieval because no
	// embedding could be produced for the query.
	DegradeEmbeddingUnavailable DegradeReason = "EMBEDDING_UNAVAILABLE"

	// DegradeGenerationUnavailable marks a verbatim-chunk answer because the
	// generation provider failed.
	DegradeGenerationUnavailable DegradeReason = "GENERATION_UNAVAILABLE"

	// DegradeIndexCorrupt marks single-modality retrieval after one index
	// failed its integrity check.
	DegradeIndexCorrupt DegradeReason = "INDEX_CORRUPT"

	// DegradeTimeout marks a partial result returned at deadline expiry.
	DegradeTimeout DegradeReason = "TIMEOUT"
)
