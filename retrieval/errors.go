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


package retrieval

import "errors"

var (
	// ErrInvalidFusionWeight is returned when the fusion weight is outside [0,1].
	ErrInvalidFusionWeight = errors.New("fusion weight must be in [0,1]")

	// ErrInvalidFetchDepth is returned when a per-modality fetch depth is not positive.
	ErrInvalidFetchDepth = errors.New("fetch depth must be greater than 0")

	// ErrInvalidSimilarityCap is returned when the rerank similarity cap is outside (0,1].
	ErrInvalidSimilarityCap = errors.New("similarity cap must be in (0,1]")
)
