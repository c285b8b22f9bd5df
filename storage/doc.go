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


// Package storage provides the storage abstraction layer for docquery.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - DocumentRepository: lifecycle operations for documents
//   - ChunkRepository: chunk persistence and vector similarity search
//   - JobRepository: asynchronous job tracking
//   - AnswerRepository: synthesized answer audit records
//   - BlobStore: read-only byte access for document locators
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. Chunk upserts are
// idempotent by ID with last-write-wins semantics.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
