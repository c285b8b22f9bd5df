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

// Package ai defines the interfaces and configuration for the model-backed
// services used throughout the pipeline: text embedding, chunk tag
// classification, and answer generation.
//
// The interfaces are deliberately small. Embedder turns text into vectors,
// TagClassifier assigns topical tags to chunk content, and GenerationBackend
// produces answer text from an assembled prompt. Production implementations
// live in ai/openai and talk to OpenAI-compatible HTTP services; test doubles
// live in ai/mock.
//
// A Provider aggregates the services so callers can initialize them from a
// single Config and share its lifecycle:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	    ai.WithGenerationModels("qwen2.5:7b", "qwen2.5:3b"),
//	)
//	provider, err := openai.NewProvider(cfg)
//
// All implementations must be safe for concurrent use.
package ai
