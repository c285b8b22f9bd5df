// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline drives a document from raw bytes to indexed chunks.
//
// The Coordinator runs the stages in order: extract, chunk, persist,
// embed and index, classify, finalize. Extraction and chunking failures
// are fatal and mark the document Failed. Embedding and classification
// failures degrade: the chunks stay queryable by tags and document, just
// without vectors or tags, and the document still completes.
//
// Parameters are validated before any side effect, so an invalid request
// leaves storage untouched.
package pipeline
