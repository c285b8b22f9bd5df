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
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docquery/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// TagClassifier implements ai.TagClassifier using OpenAI-compatible chat APIs.
type TagClassifier struct {
	client        llms.Model
	minConfidence int
	logger        *slog.Logger
}

// tag is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type tag struct {
	Tag        string `json:"tag"`
	Confidence int    `json:"confidence"`
}

// classification is the wrapper structure for the LLM's JSON response.
type classification struct {
	Tags []tag `json:"tags"`
}

// newTagClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTagClassifier(config *ai.Config) (*TagClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &TagClassifier{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewTagClassifier creates a new tag classifier using the provided configuration.
//
// Returns ai.TagClassifier interface to enforce abstraction.
func NewTagClassifier(config *ai.Config) (ai.TagClassifier, error) {
	return newTagClassifier(config)
}

// ClassifyTags assigns topical tags to text using an LLM.
// It applies confidence filtering and returns only tags at or above the
// minimum threshold, ordered by descending confidence.
func (c *TagClassifier) ClassifyTags(ctx context.Context, text string) ([]ai.ChunkTag, error) {
	systemPrompt := buildClassifierPrompt()
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
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result classification
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return []ai.ChunkTag{}, nil
		}

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, lastErr
	}

	// Keep only known tags at or above the confidence threshold
	assigned := make([]ai.ChunkTag, 0, len(result.Tags))
	for _, t := range result.Tags {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t.Tag)), " ", "_")
		if t.Confidence < c.minConfidence {
			continue
		}
		if !slices.Contains(ai.TagTypes, name) {
			c.logger.Debug("dropping unknown tag", "tag", name)
			continue
		}
		assigned = append(assigned, ai.ChunkTag{
			Name:       name,
			Confidence: t.Confidence,
		})
	}

	slices.SortFunc(assigned, func(a, b ai.ChunkTag) int {
		return b.Confidence - a.Confidence
	})

	c.logger.Debug("classified tags",
		"total", len(result.Tags),
		"assigned", len(assigned))

	return assigned, nil
}
