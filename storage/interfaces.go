package storage

import (
	"context"

	"github.com/poiesic/docquery/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkFilter restricts chunk queries. Zero value matches everything.
type ChunkFilter struct {
	// DocumentIds limits results to chunks of these documents.
	DocumentIds []core.ID

	// ExcludeDocumentIds removes chunks of these documents from results.
	ExcludeDocumentIds []core.ID

	// Tags requires every listed tag to be present on the chunk.
	Tags []string
}

// Matches reports whether the chunk passes the filter.
func (f *ChunkFilter) Matches(chunk *core.Chunk) bool {
	if f == nil {
		return true
	}
	if len(f.DocumentIds) > 0 {
		found := false
		for _, id := range f.DocumentIds {
			if chunk.DocumentId == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, id := range f.ExcludeDocumentIds {
		if chunk.DocumentId == id {
			return false
		}
	}
	for _, tag := range f.Tags {
		found := false
		for _, have := range chunk.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// VectorMatch is a chunk matched by vector similarity search.
// Score is the raw cosine similarity against the query vector.
type VectorMatch struct {
	Chunk *core.Chunk
	Score float32
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, generates new IDs from sequence.
	// A zero Status is normalized to DocumentPending.
	// Returns the documents with generated IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// SetDocumentStatus updates only the lifecycle status of a document.
	// Returns ErrNotFound if the document doesn't exist.
	SetDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) error

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments retrieves up to limit documents, optionally filtered by
	// status. A zero status matches all statuses.
	ListDocuments(ctx context.Context, status core.DocumentStatus, limit int) ([]*core.Document, error)
}

// ChunkRepository provides chunk persistence and vector similarity search.
type ChunkRepository interface {
	Repository

	// UpsertChunks inserts or replaces chunks keyed by their IDs.
	// The operation is idempotent; re-upserting the same chunk is a no-op
	// apart from the UpdatedAt timestamp. Last write wins per ID.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	// Unknown IDs are ignored; deleting a nonexistent chunk is not an error.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// DeleteDocumentChunks removes every chunk belonging to a document.
	// Returns the number of chunks removed.
	DeleteDocumentChunks(ctx context.Context, documentId core.ID) (int, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetDocumentChunks retrieves all chunks of a document in ordinal order.
	GetDocumentChunks(ctx context.Context, documentId core.ID) ([]*core.Chunk, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns up to limit matches passing the filter, ordered by cosine
	// similarity (highest first). Chunks without embeddings are skipped.
	FindSimilar(ctx context.Context, vector []float32, limit int, filter *ChunkFilter) ([]*VectorMatch, error)

	// FindByTags finds chunks carrying all of the given tags, without any
	// vector comparison. Results are capped at limit.
	FindByTags(ctx context.Context, tags []string, limit int, filter *ChunkFilter) ([]*core.Chunk, error)
}

// JobRepository provides operations for tracking asynchronous jobs.
type JobRepository interface {
	Repository

	// AddJob adds a job to storage, generating its ID from sequence.
	AddJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// UpdateJob updates an existing job.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.Job, error)

	// ListActiveJobs retrieves jobs in Pending or Progress status.
	ListActiveJobs(ctx context.Context) ([]*core.Job, error)
}

// AnswerRepository provides operations for persisted answer records.
type AnswerRepository interface {
	Repository

	// AddAnswerRecords adds one or more answer records to storage.
	// Records with ID=0 receive content-based IDs.
	AddAnswerRecords(ctx context.Context, records ...*core.AnswerRecord) ([]*core.AnswerRecord, error)

	// GetAnswerRecord retrieves a single answer record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetAnswerRecord(ctx context.Context, id core.ID) (*core.AnswerRecord, error)

	// ListAnswerRecords retrieves up to limit answer records, newest first.
	ListAnswerRecords(ctx context.Context, limit int) ([]*core.AnswerRecord, error)
}

// BlobStore provides read-only byte access for document locators.
// It is the boundary to whatever system holds the uploaded files.
type BlobStore interface {
	// Exists reports whether the locator resolves to readable content.
	Exists(ctx context.Context, locator string) (bool, error)

	// Size returns the content size in bytes.
	// Returns ErrNotFound if the locator doesn't resolve.
	Size(ctx context.Context, locator string) (int64, error)

	// Read returns the full content bytes.
	// Returns ErrNotFound if the locator doesn't resolve.
	Read(ctx context.Context, locator string) ([]byte, error)
}
