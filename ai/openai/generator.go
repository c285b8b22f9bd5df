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
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docquery/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// availabilityTTL bounds how long a probe result is trusted before the
// backend is probed again.
const availabilityTTL = 30 * time.Second

// GenerationBackend implements ai.GenerationBackend using OpenAI-compatible
// chat APIs. One backend wraps one model; fallback across models is the
// caller's concern.
type GenerationBackend struct {
	client llms.Model
	model  string
	logger *slog.Logger

	mu          sync.Mutex
	lastProbe   time.Time
	lastHealthy bool
}

// newGenerationBackend is an internal constructor that returns the concrete
// type. Used by Provider to manage the instances.
func newGenerationBackend(config *ai.Config, model string) (*GenerationBackend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	return &GenerationBackend{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "openai-generator", "model", model),
	}, nil
}

// NewGenerationBackend creates a generation backend for a single model.
//
// Returns ai.GenerationBackend interface to enforce abstraction.
func NewGenerationBackend(config *ai.Config, model string) (ai.GenerationBackend, error) {
	return newGenerationBackend(config, model)
}

// Name returns the model identifier this backend generates with.
func (g *GenerationBackend) Name() string {
	return g.model
}

// IsAvailable probes the backend with a minimal generation request.
// Probe results are cached briefly so repeated fallback decisions don't
// hammer the service.
func (g *GenerationBackend) IsAvailable(ctx context.Context) bool {
	g.mu.Lock()
	if time.Since(g.lastProbe) < availabilityTTL {
		healthy := g.lastHealthy
		g.mu.Unlock()
		return healthy
	}
	g.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := llms.GenerateFromSinglePrompt(probeCtx, g.client, "ping",
		llms.WithMaxTokens(1))
	healthy := err == nil
	if err != nil {
		g.logger.Debug("availability probe failed", "err", err)
	}

	g.mu.Lock()
	g.lastProbe = time.Now()
	g.lastHealthy = healthy
	g.mu.Unlock()
	return healthy
}

// Generate produces answer text for the given system and user prompts.
func (g *GenerationBackend) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	response, err := g.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		g.logger.Error("generation failed", "err", err)
		g.markUnhealthy()
		return "", err
	}
	if len(response.Choices) < 1 {
		g.logger.Warn("no choices returned from model")
		return "", errors.New("model returned no choices")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

func (g *GenerationBackend) markUnhealthy() {
	g.mu.Lock()
	g.lastProbe = time.Now()
	g.lastHealthy = false
	g.mu.Unlock()
}
