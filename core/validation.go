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


package core

import "fmt"

// Chunking parameter bounds. Sizes are in characters of normalized text.
const (
	MinChunkSize = 100
	MaxChunkSize = 5000
)

// ValidateChunkParams validates chunk size and overlap before any side effect.
//
// Rules:
//   - size must lie in [MinChunkSize, MaxChunkSize]
//   - overlap must be non-negative and strictly smaller than size
func ValidateChunkParams(size, overlap int) error {
	if size < MinChunkSize || size > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d outside [%d, %d]",
			ErrConfiguration, size, MinChunkSize, MaxChunkSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap %d is negative", ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d",
			ErrConfiguration, overlap, size)
	}
	return nil
}

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Locator must not be empty
//   - Format must be a known format type
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - Status (zero value is normalized to Pending on insert)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrConfiguration)
	}
	if doc.Locator == "" {
		return fmt.Errorf("%w: document locator is empty", ErrConfiguration)
	}
	switch doc.Format {
	case FormatPlainText, FormatMarkdown, FormatHTML:
	default:
		return fmt.Errorf("%w: unknown format type %d", ErrConfiguration, doc.Format)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Ordinal must be non-negative
//   - DocumentId must be set
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding stage runs)
//   - Tags (can be empty until the classifier runs)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrConfiguration)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrEmptyContent)
	}
	if chunk.Ordinal < 0 {
		return fmt.Errorf("%w: chunk ordinal %d is negative", ErrConfiguration, chunk.Ordinal)
	}
	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: chunk has no parent document", ErrConfiguration)
	}
	return nil
}

// ValidateProgress checks the Current <= Total invariant.
func ValidateProgress(p JobProgressState) error {
	if p.Current < 0 || p.Total < 0 {
		return fmt.Errorf("%w: negative progress values", ErrConfiguration)
	}
	if p.Current > p.Total {
		return fmt.Errorf("%w: progress current %d exceeds total %d",
			ErrConfiguration, p.Current, p.Total)
	}
	return nil
}

// ValidateTransition checks that a job status transition only moves forward.
// Terminal states are write-once.
func ValidateTransition(from, to JobStatus) error {
	if from.Terminal() {
		return fmt.Errorf("%w: cannot transition from %d to %d", ErrTerminalJob, from, to)
	}
	if to < from {
		return fmt.Errorf("%w: job status cannot regress from %d to %d",
			ErrConfiguration, from, to)
	}
	return nil
}

// ClampScore clamps a relevance or confidence score to [0, 1].
func ClampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
