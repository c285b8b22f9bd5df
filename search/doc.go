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

// Package search provides retrieval and reranking over indexed chunks.
//
// The Searcher embeds the query, oversamples candidates from the vector
// index, and optionally reranks them with a composite score that blends the
// vector similarity with exact-phrase and keyword-overlap signals. Tag-only
// search and chunk-to-chunk similarity bypass query embedding entirely.
//
// Retrieval degrades rather than fails: when the query cannot be embedded,
// Search returns an empty, flagged result instead of an error so callers
// can distinguish "nothing relevant" from "retrieval was unavailable".
package search
