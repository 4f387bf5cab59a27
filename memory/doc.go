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

// Package memory holds the conversational side of the system: the
// append-only turn log behind Store (windowed recall, similarity recall,
// age and cap eviction) and the Consolidator, which periodically distills
// recurring turns into durable long-term entries via greedy clustering
// and count-weighted centroid merging.
package memory
