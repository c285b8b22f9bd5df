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

// Package chunker splits normalized text into overlapping chunks for
// embedding and retrieval.
//
// Splitting is deterministic and rune-aware. Within each window the chunker
// prefers to cut right after a sentence terminator, then at the nearest
// preceding whitespace, and only hard-cuts at the window size when neither
// boundary exists. Overlap is approximate: boundary snapping takes priority
// over the exact overlap length.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/docquery/core"
)

// sentence terminators recognized as preferred cut points
var terminators = map[rune]bool{
	'.': true,
	'!': true,
	'?': true,
}

// Chunk splits text into overlapping pieces of at most size runes.
// Consecutive chunks share roughly overlap runes of context. Empty or
// whitespace-only input yields no chunks and no error. Size and overlap
// are validated: size must be positive and overlap non-negative and
// smaller than size.
//
// De-overlapped concatenation of the returned chunks reproduces the
// trimmed input text.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", core.ErrConfiguration, overlap)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := findBoundary(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Step back for overlap, but always advance past the previous start.
		// The overlap start snaps forward to a word boundary so chunks
		// never begin mid-word.
		next := cut - overlap
		if next <= start {
			next = cut
		} else {
			for next < cut && !unicode.IsSpace(runes[next-1]) {
				next++
			}
		}
		start = next
	}

	return chunks, nil
}

// findBoundary picks the cut position for the window [start, end).
// Preference order: after the last sentence terminator in the window,
// at the last whitespace in the window, hard cut at end.
func findBoundary(runes []rune, start, end int) int {
	lastTerminator := -1
	lastSpace := -1
	for i := end - 1; i > start; i-- {
		if lastTerminator < 0 && terminators[runes[i-1]] {
			lastTerminator = i
		}
		if lastSpace < 0 && unicode.IsSpace(runes[i-1]) {
			lastSpace = i
		}
		if lastTerminator >= 0 && lastSpace >= 0 {
			break
		}
	}

	if lastTerminator > start {
		return lastTerminator
	}
	if lastSpace > start {
		return lastSpace
	}
	return end
}
