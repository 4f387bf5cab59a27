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

// Package router classifies queries into regulatory domain specialists.
//
// Each specialist profile pairs a prototype embedding and a keyword set
// with the corpus sources it owns. Routing combines cosine similarity to
// the prototype with the keyword-overlap ratio; when the best combined
// score stays under the confidence threshold the query routes to the
// general fallback and retrieval runs unscoped.
//
// The profile set is immutable: Reload builds a new set and publishes it
// with one atomic pointer swap, so concurrent routing never observes a
// half-loaded taxonomy.
package router
