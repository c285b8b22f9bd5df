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

package openai

import (
	"log/slog"

	"github.com/poiesic/docquery/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages the embedder, classifier, and generation backend instances.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	classifier *TagClassifier
	generators []ai.GenerationBackend
	logger     *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. One generation backend
// is created per configured model, preserving the configured priority order.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	classifier, err := newTagClassifier(config)
	if err != nil {
		return nil, err
	}

	generators := make([]ai.GenerationBackend, 0, len(config.GenerationModels))
	for _, model := range config.GenerationModels {
		backend, err := newGenerationBackend(config, model)
		if err != nil {
			return nil, err
		}
		generators = append(generators, backend)
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		classifier: classifier,
		generators: generators,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// TagClassifier returns the tag classification service.
func (p *Provider) TagClassifier() ai.TagClassifier {
	return p.classifier
}

// GenerationBackends returns the generation backends in priority order.
func (p *Provider) GenerationBackends() []ai.GenerationBackend {
	return p.generators
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
