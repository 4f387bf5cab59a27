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


// Package index provides the in-memory retrieval indexes: an embedding
// index queried by cosine similarity and a lexical index queried by term
// frequency over normalized Spanish tokens.
//
// Both indexes live inside a Snapshot, an immutable generation of the
// whole structure. The Store publishes snapshots through an atomic
// pointer: readers load one snapshot and see a fully-consistent
// generation for the duration of a query, while rebuilds construct the
// next generation off to the side and swap it in wholesale. There is no
// in-place mutation and no reader locking.
package index
