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

package docquery

import (
	"log/slog"

	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/ai/openai"
	"github.com/poiesic/docquery/answer"
	"github.com/poiesic/docquery/embedding"
	"github.com/poiesic/docquery/jobs"
	"github.com/poiesic/docquery/pipeline"
	"github.com/poiesic/docquery/search"
	"github.com/poiesic/docquery/storage"
	"github.com/poiesic/docquery/storage/badger"
	"github.com/poiesic/docquery/storage/fsblob"
)

// Database bundles the storage backend, repositories, the AI provider, and
// the cached embedder behind one handle. Component constructors hang off it
// so callers wire the pipeline, orchestrator, searcher, and synthesizer
// without touching individual repositories.
type Database struct {
	backend      *badger.Backend
	documentRepo storage.DocumentRepository
	chunkRepo    storage.ChunkRepository
	jobRepo      storage.JobRepository
	answerRepo   storage.AnswerRepository
	blobs        *fsblob.Store
	provider     ai.Provider
	embedder     *embedding.CachedEmbedder
	logger       *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig overrides the default AI configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// NewDatabase opens the storage backend at filePath and the blob store at
// blobRoot, and connects the AI provider.
func NewDatabase(filePath, blobRoot string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	jobRepo, err := badger.NewJobRepository(backend)
	if err != nil {
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	answerRepo := badger.NewAnswerRepository(backend)

	blobs, err := fsblob.NewStore(blobRoot)
	if err != nil {
		jobRepo.Close()
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		jobRepo.Close()
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	embedder, err := embedding.NewCachedEmbedder(provider.Embedder(), options.aiConfig.EmbeddingModel)
	if err != nil {
		provider.Close()
		jobRepo.Close()
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:      backend,
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		jobRepo:      jobRepo,
		answerRepo:   answerRepo,
		blobs:        blobs,
		provider:     provider,
		embedder:     embedder,
		logger:       slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	db.embedder.Close()

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.jobRepo.Close(); err != nil {
		db.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := db.answerRepo.Close(); err != nil {
		db.logger.Error("error closing answer repository", "err", err)
		return err
	}
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.documentRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

func (db *Database) JobRepository() storage.JobRepository {
	return db.jobRepo
}

func (db *Database) AnswerRepository() storage.AnswerRepository {
	return db.answerRepo
}

func (db *Database) BlobStore() storage.BlobStore {
	return db.blobs
}

func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// NewCoordinator builds a pipeline coordinator over this database. The
// provider's tag classifier is wired in unless an option overrides it.
func (db *Database) NewCoordinator(opts ...pipeline.Option) (*pipeline.Coordinator, error) {
	combined := append([]pipeline.Option{
		pipeline.WithClassifier(db.provider.TagClassifier()),
	}, opts...)
	return pipeline.NewCoordinator(db.documentRepo, db.chunkRepo, db.blobs, db.embedder, combined...)
}

// NewOrchestrator builds a job orchestrator with its own coordinator.
func (db *Database) NewOrchestrator(opts ...jobs.Option) (*jobs.Orchestrator, error) {
	coordinator, err := db.NewCoordinator()
	if err != nil {
		return nil, err
	}
	return jobs.NewOrchestrator(db.jobRepo, db.documentRepo, db.chunkRepo, coordinator, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.chunkRepo, db.documentRepo, db.embedder, opts...)
}

// NewSynthesizer builds an answer synthesizer backed by the provider's
// generation backends, persisting answers to the answer repository.
func (db *Database) NewSynthesizer(opts ...answer.Option) (*answer.Synthesizer, error) {
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}

	registry := answer.NewRegistry(db.provider.GenerationBackends()...)
	combined := append([]answer.Option{
		answer.WithAnswerRepository(db.answerRepo),
	}, opts...)
	return answer.NewSynthesizer(searcher, registry, combined...)
}
