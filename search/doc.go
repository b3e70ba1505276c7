// Copyright 2025 Poiesic Systems
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


// Package search provides semantic retrieval over a vector index.
//
// The Searcher embeds a query, asks the VectorStore for the k nearest
// chunks and optionally drops hits beyond a cosine distance cut-off.
// Results are ordered by ascending distance. A SearchMonitor observes each
// step, including whether a hit contains every non-stop-word of the query.
package search
