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

// Package embedding wraps an ai.Embedder with caching and vector hygiene.
//
// The CachedEmbedder keys its cache on the model identifier plus a content
// hash, so re-embedding unchanged chunks is free and switching models never
// serves stale vectors. All vectors are normalized to unit length before
// caching or returning, which lets the vector index rank by plain dot
// product. Single and batch embedding share the cache, so embedding a batch
// is equivalent to embedding each text individually.
package embedding
