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


// Package ai provides abstractions for the external model capabilities
// normabot consumes.
//
// The engine never talks to a model API directly; it depends on two
// capability interfaces selected once at startup and injected:
//
//   - Embedder: generates vector embeddings from text
//   - Generator: produces grounded answers from a query plus context block
//   - AIProvider: aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles with no external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types to enforce abstraction. Mock constructors return concrete
// types so tests can inject behavior and assert call counts.
//
// # Failure Semantics
//
// Provider failures never abort a query. The engine degrades: a failed
// Embedder switches retrieval to lexical-only mode, and a failed Generator
// falls back to returning the top retrieved excerpt verbatim. RetryWithBackoff
// is available for transient transport errors underneath that policy.
package ai
