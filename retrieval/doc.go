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


// Package retrieval provides hybrid search over the regulatory corpus.
//
// The Retriever pulls top-K results from the embedding index and the
// lexical index, min-max normalizes each batch onto [0,1], and fuses
// them with a configurable weight α:
//
//	fused = α·vector + (1−α)·lexical
//
// A chunk found by only one modality scores 0 on the other. Output is
// deduplicated and deterministically ordered (fused score descending,
// chunk ID ascending on ties).
//
// The Reranker then trims the fused list to the final result count with
// maximal-marginal-relevance selection, capping pairwise similarity
// between selected chunks at τ so the generation context isn't wasted
// on near-duplicates.
package retrieval
