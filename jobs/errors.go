package jobs

import "errors"

var (
	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrCoordinatorRequired is returned when a pipeline coordinator is not provided.
	ErrCoordinatorRequired = errors.New("pipeline coordinator required")

	// ErrNoDocuments is returned when a job spec names no documents.
	ErrNoDocuments = errors.New("job spec names no documents")

	// ErrCanceled marks a job stopped by an advisory cancellation before all
	// of its work started.
	ErrCanceled = errors.New("job canceled")
)
