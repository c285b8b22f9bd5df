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

// Package extract turns raw document bytes into clean plain text.
//
// Extraction decodes the bytes (UTF-8, falling back to Latin-1 when the
// bytes are not valid UTF-8), strips format markup for markdown and HTML,
// and normalizes whitespace. Documents whose extracted text is too short
// to be useful are rejected rather than indexed as noise.
package extract
