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

import "errors"

var (
	// ErrTurnRepositoryRequired indicates a nil turn repository.
	ErrTurnRepositoryRequired = errors.New("turn repository is required")

	// ErrLongTermRepositoryRequired indicates a nil long-term repository.
	ErrLongTermRepositoryRequired = errors.New("long-term repository is required")

	// ErrInvalidMergeThreshold indicates a merge threshold outside (0,1].
	ErrInvalidMergeThreshold = errors.New("merge threshold must be in (0,1]")

	// ErrInvalidFrequencyThreshold indicates a frequency threshold below 1.
	ErrInvalidFrequencyThreshold = errors.New("frequency threshold must be at least 1")

	// ErrInvalidHorizon indicates a non-positive retention horizon.
	ErrInvalidHorizon = errors.New("retention horizon must be positive")

	// ErrInvalidSessionCap indicates a non-positive per-session cap.
	ErrInvalidSessionCap = errors.New("session cap must be positive")
)
