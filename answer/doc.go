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

// Package answer synthesizes grounded answers from retrieved chunks.
//
// The Synthesizer retrieves context for a question, assembles it into a
// prompt within a character budget, and asks a generation backend for the
// answer. Backends are held in a priority-ordered Registry; when the
// preferred backend is unavailable or fails, the next one is tried.
// Generation failures never propagate as errors: the caller always gets an
// AnswerRecord, possibly an error-tagged one, so batch processing and audit
// trails stay uniform.
package answer
