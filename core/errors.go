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

import "errors"

// Error taxonomy shared across the pipeline. Callers match with errors.Is;
// components wrap these with fmt.Errorf("%w: ...") to attach detail.
var (
	// ErrConfiguration indicates invalid parameters. Fails fast, no side effects.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrExtraction indicates text extraction failed. Fatal to the job.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates embedding generation failed. The pipeline
	// continues in a degraded state.
	ErrEmbedding = errors.New("embedding failed")

	// ErrClassification indicates tag classification failed. Best effort,
	// the pipeline continues.
	ErrClassification = errors.New("classification failed")

	// ErrRetrieval indicates retrieval degraded to an empty result.
	// It is reported via a flag, never raised to callers.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGenerationBackend indicates a generation backend call failed,
	// triggering fallback to the next backend in priority order.
	ErrGenerationBackend = errors.New("generation backend failed")

	// ErrNotFound indicates an unknown job, document or chunk.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget indicates a job submission for an unknown document.
	ErrInvalidTarget = errors.New("invalid job target")

	// ErrAlreadyInProgress indicates a job is already active for the document.
	ErrAlreadyInProgress = errors.New("job already in progress for document")

	// ErrEmptyContent indicates empty or whitespace-only text where content
	// is required.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrTerminalJob indicates an attempted transition out of a terminal
	// job status.
	ErrTerminalJob = errors.New("job is in a terminal state")
)
