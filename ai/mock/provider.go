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

package mock

import "github.com/poiesic/docquery/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock embedder, classifier, and generation backend instances.
type MockProvider struct {
	embedder   *MockEmbedder
	classifier *MockTagClassifier
	generators []*MockGenerationBackend
}

// NewMockProvider creates a new mock provider with default mock services and
// a single available generation backend.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockClassifier()/GetMockBackends() to access
// concrete types for test assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		classifier: NewMockTagClassifier(),
		generators: []*MockGenerationBackend{NewMockGenerationBackend("mock-primary")},
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, classifier *MockTagClassifier, generators ...*MockGenerationBackend) ai.Provider {
	return &MockProvider{
		embedder:   embedder,
		classifier: classifier,
		generators: generators,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// TagClassifier returns the mock tag classifier.
func (p *MockProvider) TagClassifier() ai.TagClassifier {
	return p.classifier
}

// GenerationBackends returns the mock generation backends in priority order.
func (p *MockProvider) GenerationBackends() []ai.GenerationBackend {
	backends := make([]ai.GenerationBackend, len(p.generators))
	for i, g := range p.generators {
		backends[i] = g
	}
	return backends
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockClassifier returns the underlying mock classifier for test assertions.
func (p *MockProvider) GetMockClassifier() *MockTagClassifier {
	return p.classifier
}

// GetMockBackends returns the underlying mock backends for test assertions.
func (p *MockProvider) GetMockBackends() []*MockGenerationBackend {
	return p.generators
}
