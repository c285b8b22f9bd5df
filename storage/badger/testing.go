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


package badger

import "github.com/poiesic/docquery/storage"

// MemoryRepositories bundles in-memory repositories for testing.
type MemoryRepositories struct {
	Documents storage.DocumentRepository
	Chunks    storage.ChunkRepository
	Jobs      storage.JobRepository
	Answers   storage.AnswerRepository
	Backend   *Backend
}

// Close closes all repositories and the backend.
func (m *MemoryRepositories) Close() {
	m.Documents.Close()
	m.Chunks.Close()
	m.Jobs.Close()
	m.Answers.Close()
	m.Backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	docRepo, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := NewChunkRepository(backend)
	if err != nil {
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	jobRepo, err := NewJobRepository(backend)
	if err != nil {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Documents: docRepo,
		Chunks:    chunkRepo,
		Jobs:      jobRepo,
		Answers:   NewAnswerRepository(backend),
		Backend:   backend,
	}, nil
}
