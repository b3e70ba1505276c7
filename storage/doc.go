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


// Package storage provides the storage abstraction layer for recall.
//
// This package defines the two store contracts the request pipeline and the
// ingestion batch depend on, plus the codecs and similarity math shared by
// the backends:
//
//   - VectorStore: chunk text and embeddings under a named index, answering
//     k-nearest-neighbor queries by cosine distance
//   - ConversationStore: per-session turn history, newest first, with a
//     time-to-live renewed on every append
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the interface, not the concrete type:
//
//	vectors, err := redis.NewVectorStore(client)  // returns storage.VectorStore
//	turns, err := badger.NewConversationStore(backend, time.Hour)
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Backends
//
//   - storage/redis: RediSearch FT.* commands and Redis lists
//   - storage/badger: embedded BadgerDB with entry TTLs
//   - storage/memory: process-local maps and go-cache
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. Writes to one
// session or one chunk key are ordered only by the backend.
package storage
