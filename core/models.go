package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FormatType identifies the source format of a document.
type FormatType int

const (
	// FormatPlainText represents plain text documents.
	FormatPlainText FormatType = iota + 1
	// FormatMarkdown represents Markdown documents.
	FormatMarkdown
	// FormatHTML represents HTML documents.
	FormatHTML
)

// DocumentStatus tracks the processing lifecycle of a document.
type DocumentStatus int

const (
	// DocumentPending means the document has been uploaded but not processed.
	DocumentPending DocumentStatus = iota + 1
	// DocumentProcessing means a pipeline run is mutating the document's chunk set.
	DocumentProcessing
	// DocumentCompleted means processing finished successfully.
	DocumentCompleted
	// DocumentFailed means processing aborted with a fatal error.
	DocumentFailed
)

// Document represents an uploaded document tracked through the processing pipeline.
// The Status field is mutated only by the pipeline coordinator.
type Document struct {
	Id         ID
	Locator    string // Storage locator understood by the BlobStore
	Format     FormatType
	Status     DocumentStatus
	Metadata   map[string]string // Optional metadata attached at upload time
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Chunk is a contiguous, size-bounded slice of a document's normalized text.
// Content is immutable after creation; Vector and Tags are populated by
// the embedding and classification stages.
type Chunk struct {
	Id         ID
	DocumentId ID
	Ordinal    int // Contiguous from 0 within the parent document
	Content    string
	Vector     []float32 // Embedding vector, normalized to unit length
	Tags       []string  // Taxonomy tags (populated by the classifier)
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ChunkID generates a deterministic chunk ID from the parent document,
// the ordinal position and the chunk text.
func ChunkID(documentId ID, ordinal int, content string) ID {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(documentId))
	binary.LittleEndian.PutUint64(buf[8:], uint64(ordinal))
	return IDFromContent(string(buf[:]) + content)
}

// JobType identifies the kind of work a job performs.
type JobType int

const (
	// JobTypeSingle processes one document end to end.
	JobTypeSingle JobType = iota + 1
	// JobTypeBatch fans processing out over many documents.
	JobTypeBatch
	// JobTypeRegenerate rebuilds the chunk set of an already-processed document.
	JobTypeRegenerate
	// JobTypeCleanup removes chunks whose parent document no longer exists.
	JobTypeCleanup
)

// JobStatus tracks the lifecycle of an asynchronous job.
// Transitions only move forward; Success and Failure are terminal.
type JobStatus int

const (
	// JobPending means the job is queued but not started.
	JobPending JobStatus = iota + 1
	// JobProgress means the job is running.
	JobProgress
	// JobSuccess means the job completed; terminal.
	JobSuccess
	// JobFailure means the job aborted with an error; terminal.
	JobFailure
)

// Terminal reports whether the status is one of the write-once end states.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailure
}

// JobProgressState reports how far a running job has advanced.
// Current never exceeds Total.
type JobProgressState struct {
	Current int
	Total   int
	Label   string
}

// JobResult is the success snapshot attached to a completed job.
type JobResult struct {
	ChunkCount     int
	EmbeddedCount  int
	ProcessedIds   []ID
	FailedIds      []ID
	DurationMicros int64
}

// Job is a tracked unit of asynchronous work with progress and terminal status.
type Job struct {
	Id          ID
	DocumentIds []ID
	Type        JobType
	Status      JobStatus
	Progress    JobProgressState
	Result      JobResult
	Error       string
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// RetrievalResult is an ephemeral ranked passage returned by the retrieval
// engine. It is never persisted.
type RetrievalResult struct {
	ChunkId    ID
	DocumentId ID
	Content    string
	Relevance  float32 // Always in [0, 1]
	Source     string  // Human-readable source label
	Tags       []string
}

// AnswerRecord captures one synthesized answer together with its provenance.
type AnswerRecord struct {
	Id             ID
	Question       string
	Answer         string
	ModelUsed      string
	Confidence     float32 // Always in [0, 1]
	SourceChunkIds []ID    // Ordered by descending relevance
	CreatedAt      time.Time
}
