package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/chunker"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/extract"
	"github.com/poiesic/docquery/storage"
)

// NoChunkOverlap requests chunks with no shared context. A ChunkOverlap of
// zero means "use the default"; this sentinel means literally zero.
const NoChunkOverlap = -1

const (
	defaultChunkSize       = 1000
	defaultChunkOverlap    = 100
	defaultExtractTimeout  = 30 * time.Second
	defaultEmbedTimeout    = 2 * time.Minute
	defaultClassifyTimeout = time.Minute
	defaultMaxRetries      = 3
	defaultRetryBaseDelay  = time.Second
)

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrBlobStoreRequired is returned when a blob store is not provided.
	ErrBlobStoreRequired = errors.New("blob store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// Params controls how a document is chunked and processed. The zero value
// uses defaults.
type Params struct {
	// ChunkSize is the maximum chunk length in runes. Defaults to 1000.
	// Must be within core.MinChunkSize and core.MaxChunkSize.
	ChunkSize int

	// ChunkOverlap is the approximate overlap between consecutive chunks.
	// Must be smaller than ChunkSize. Zero defaults to 100; pass
	// NoChunkOverlap for chunks that share no context.
	ChunkOverlap int

	// FormatHint overrides format detection from the locator extension.
	FormatHint core.FormatType

	// ExtractTimeout bounds the extraction stage. Expiry is fatal.
	// Defaults to 30s.
	ExtractTimeout time.Duration

	// EmbedTimeout bounds the embedding stage. Expiry degrades.
	// Defaults to 2m.
	EmbedTimeout time.Duration

	// ClassifyTimeout bounds the classification stage. Expiry degrades.
	// Defaults to 1m.
	ClassifyTimeout time.Duration
}

func (p *Params) withDefaults() Params {
	out := Params{}
	if p != nil {
		out = *p
	}
	if out.ChunkSize == 0 {
		out.ChunkSize = defaultChunkSize
	}
	switch out.ChunkOverlap {
	case 0:
		out.ChunkOverlap = defaultChunkOverlap
	case NoChunkOverlap:
		out.ChunkOverlap = 0
	}
	if out.ExtractTimeout <= 0 {
		out.ExtractTimeout = defaultExtractTimeout
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = defaultEmbedTimeout
	}
	if out.ClassifyTimeout <= 0 {
		out.ClassifyTimeout = defaultClassifyTimeout
	}
	return out
}

// Result reports what a pipeline run produced.
type Result struct {
	// ChunkCount is the number of chunks persisted.
	ChunkCount int

	// EmbeddedCount is the number of chunks that received vectors.
	// Less than ChunkCount when embedding degraded.
	EmbeddedCount int

	// TaggedCount is the number of chunks that received tags.
	TaggedCount int

	// Timings holds per-stage wall-clock durations keyed by stage name.
	Timings map[string]time.Duration
}

// Coordinator runs documents through the processing stages.
type Coordinator struct {
	documents      storage.DocumentRepository
	chunks         storage.ChunkRepository
	blobs          storage.BlobStore
	embedder       ai.Embedder
	classifier     ai.TagClassifier
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithClassifier enables the tag classification stage.
// Without it the stage is skipped entirely.
func WithClassifier(classifier ai.TagClassifier) Option {
	return func(c *Coordinator) error {
		c.classifier = classifier
		return nil
	}
}

// WithRetry configures retry behavior for embedding calls.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Coordinator) error {
		if maxRetries <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxRetries = maxRetries
		c.retryBaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates a pipeline coordinator.
func NewCoordinator(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	blobs storage.BlobStore,
	embedder ai.Embedder,
	opts ...Option,
) (*Coordinator, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	c := &Coordinator{
		documents:      documents,
		chunks:         chunks,
		blobs:          blobs,
		embedder:       embedder,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
		logger:         slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ProcessDocument runs a document through every stage. On fatal failure the
// document is marked Failed and the error returned; on success it is marked
// Completed.
func (c *Coordinator) ProcessDocument(ctx context.Context, documentId core.ID, params *Params) (*Result, error) {
	return c.run(ctx, documentId, params, false)
}

// RegenerateDocument reprocesses a document from scratch: its existing
// chunks are deleted before the new ones are persisted. Used when chunking
// parameters change or the source content was replaced.
func (c *Coordinator) RegenerateDocument(ctx context.Context, documentId core.ID, params *Params) (*Result, error) {
	return c.run(ctx, documentId, params, true)
}

func (c *Coordinator) run(ctx context.Context, documentId core.ID, params *Params, regenerate bool) (*Result, error) {
	p := params.withDefaults()

	// Validate before any side effect
	if err := core.ValidateChunkParams(p.ChunkSize, p.ChunkOverlap); err != nil {
		return nil, err
	}

	doc, err := c.documents.GetDocument(ctx, documentId)
	if err != nil {
		return nil, fmt.Errorf("%w: document %d", core.ErrInvalidTarget, documentId)
	}

	if err := c.documents.SetDocumentStatus(ctx, documentId, core.DocumentProcessing); err != nil {
		return nil, err
	}

	result, err := c.process(ctx, doc, p, regenerate)
	if err != nil {
		c.logger.Error("pipeline failed", "document", documentId, "locator", doc.Locator, "err", err)
		if statusErr := c.documents.SetDocumentStatus(ctx, documentId, core.DocumentFailed); statusErr != nil {
			c.logger.Error("failed to mark document failed", "document", documentId, "err", statusErr)
		}
		return nil, err
	}

	if err := c.documents.SetDocumentStatus(ctx, documentId, core.DocumentCompleted); err != nil {
		return nil, err
	}

	c.logger.Info("document processed",
		"document", documentId,
		"chunks", result.ChunkCount,
		"embedded", result.EmbeddedCount,
		"tagged", result.TaggedCount)
	return result, nil
}

func (c *Coordinator) process(ctx context.Context, doc *core.Document, p Params, regenerate bool) (*Result, error) {
	result := &Result{Timings: make(map[string]time.Duration)}

	// Stage: extract
	extractStart := time.Now()
	extracted, err := c.extractStage(ctx, doc, p)
	result.Timings["extract"] = time.Since(extractStart)
	if err != nil {
		return nil, err
	}

	// Stage: chunk
	chunkStart := time.Now()
	pieces, err := chunker.Chunk(extracted.Text, p.ChunkSize, p.ChunkOverlap)
	result.Timings["chunk"] = time.Since(chunkStart)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", core.ErrEmptyContent, doc.Locator)
	}

	// Stage: persist
	persistStart := time.Now()
	if regenerate {
		deleted, err := c.chunks.DeleteDocumentChunks(ctx, doc.Id)
		if err != nil {
			return nil, fmt.Errorf("deleting existing chunks: %w", err)
		}
		c.logger.Debug("regeneration cleared existing chunks", "document", doc.Id, "deleted", deleted)
	}

	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			DocumentId: doc.Id,
			Ordinal:    i,
			Content:    piece,
		}
	}
	stored, err := c.chunks.UpsertChunks(ctx, chunks...)
	result.Timings["persist"] = time.Since(persistStart)
	if err != nil {
		return nil, fmt.Errorf("persisting chunks: %w", err)
	}
	result.ChunkCount = len(stored)

	// Stage: embed + index (degrades on failure)
	embedStart := time.Now()
	result.EmbeddedCount = c.embedStage(ctx, stored, p)
	result.Timings["embed"] = time.Since(embedStart)

	// Stage: classify (degrades on failure, skipped without a classifier)
	if c.classifier != nil {
		classifyStart := time.Now()
		result.TaggedCount = c.classifyStage(ctx, stored, p)
		result.Timings["classify"] = time.Since(classifyStart)
	}

	return result, nil
}

// extractStage reads the blob and extracts normalized text. All failures
// here are fatal for the document.
func (c *Coordinator) extractStage(ctx context.Context, doc *core.Document, p Params) (*extract.Result, error) {
	extractCtx, cancel := context.WithTimeout(ctx, p.ExtractTimeout)
	defer cancel()

	type outcome struct {
		result *extract.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		blob, err := c.blobs.Read(extractCtx, doc.Locator)
		if err != nil {
			done <- outcome{err: fmt.Errorf("%w: reading %s: %v", core.ErrExtraction, doc.Locator, err)}
			return
		}
		result, err := extract.Extract(blob, doc.Locator, p.FormatHint)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-extractCtx.Done():
		return nil, fmt.Errorf("%w: extraction timed out for %s", core.ErrExtraction, doc.Locator)
	case o := <-done:
		return o.result, o.err
	}
}

// embedStage embeds chunk content in one batch with retries and stores the
// vectors. Failures leave chunks unembedded and return 0.
func (c *Coordinator) embedStage(ctx context.Context, chunks []*core.Chunk, p Params) int {
	embedCtx, cancel := context.WithTimeout(ctx, p.EmbedTimeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(embedCtx, func() error {
		var err error
		vectors, err = c.embedder.EmbedTexts(embedCtx, texts)
		return err
	}, c.maxRetries, c.retryBaseDelay)
	if err != nil {
		c.logger.Warn("embedding degraded, chunks stored without vectors", "chunks", len(chunks), "err", err)
		return 0
	}
	if len(vectors) != len(chunks) {
		c.logger.Warn("embedding degraded, vector count mismatch", "chunks", len(chunks), "vectors", len(vectors))
		return 0
	}

	for i, chunk := range chunks {
		chunk.Vector = vectors[i]
	}
	if _, err := c.chunks.UpsertChunks(ctx, chunks...); err != nil {
		c.logger.Warn("embedding degraded, failed to store vectors", "err", err)
		return 0
	}
	return len(chunks)
}

// classifyStage tags each chunk. Per-chunk failures are logged and skipped.
func (c *Coordinator) classifyStage(ctx context.Context, chunks []*core.Chunk, p Params) int {
	classifyCtx, cancel := context.WithTimeout(ctx, p.ClassifyTimeout)
	defer cancel()

	tagged := 0
	var toUpdate []*core.Chunk
	for _, chunk := range chunks {
		if classifyCtx.Err() != nil {
			c.logger.Warn("classification timed out, remaining chunks untagged", "tagged", tagged, "total", len(chunks))
			break
		}

		tags, err := c.classifier.ClassifyTags(classifyCtx, chunk.Content)
		if err != nil {
			c.logger.Warn("classification failed for chunk", "chunk", chunk.Id, "err", err)
			continue
		}
		if len(tags) == 0 {
			continue
		}

		names := make([]string, len(tags))
		for i, tag := range tags {
			names[i] = tag.Name
		}
		chunk.Tags = names
		toUpdate = append(toUpdate, chunk)
		tagged++
	}

	if len(toUpdate) > 0 {
		if _, err := c.chunks.UpsertChunks(ctx, toUpdate...); err != nil {
			c.logger.Warn("failed to store chunk tags", "err", err)
			return 0
		}
	}
	return tagged
}
