package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docquery/ai/mock"
	"github.com/poiesic/docquery/core"
	badgerstore "github.com/poiesic/docquery/storage/badger"
	"github.com/poiesic/docquery/storage/fsblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	repos      *badgerstore.MemoryRepositories
	blobRoot   string
	embedder   *mock.MockEmbedder
	classifier *mock.MockTagClassifier
	coord      *Coordinator
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	blobRoot := t.TempDir()
	blobs, err := fsblob.NewStore(blobRoot)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	classifier := mock.NewMockTagClassifier()

	coord, err := NewCoordinator(repos.Documents, repos.Chunks, blobs, embedder,
		WithClassifier(classifier))
	require.NoError(t, err)

	return &pipelineFixture{
		repos:      repos,
		blobRoot:   blobRoot,
		embedder:   embedder,
		classifier: classifier,
		coord:      coord,
	}
}

// addDocument writes content to the blob root and registers a document for it.
func (f *pipelineFixture) addDocument(t *testing.T, locator, content string) *core.Document {
	t.Helper()

	path := filepath.Join(f.blobRoot, filepath.FromSlash(locator))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := f.repos.Documents.AddDocuments(context.Background(), &core.Document{
		Locator: locator,
		Format:  core.FormatPlainText,
	})
	require.NoError(t, err)
	return docs[0]
}

const sampleText = "The first sentence sets the scene for everything. The second sentence develops the idea further with more detail. The third sentence brings the argument to a close."

func TestProcessDocument_HappyPath(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/sample.txt", sampleText)
	ctx := context.Background()

	result, err := f.coord.ProcessDocument(ctx, doc.Id, &Params{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	assert.Greater(t, result.ChunkCount, 1)
	assert.Equal(t, result.ChunkCount, result.EmbeddedCount)
	assert.Contains(t, result.Timings, "extract")
	assert.Contains(t, result.Timings, "chunk")
	assert.Contains(t, result.Timings, "persist")
	assert.Contains(t, result.Timings, "embed")

	// Chunks persisted in ordinal order with vectors
	chunks, err := f.repos.Chunks.GetDocumentChunks(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunks, result.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.NotEmpty(t, chunk.Vector, "chunk %d has no vector", i)
	}

	// Document completed
	fetched, err := f.repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentCompleted, fetched.Status)
}

func TestProcessDocument_InvalidParamsNoSideEffects(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/sample.txt", sampleText)
	ctx := context.Background()

	_, err := f.coord.ProcessDocument(ctx, doc.Id, &Params{ChunkSize: 10, ChunkOverlap: 2})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	// No chunks written, status untouched
	chunks, err := f.repos.Chunks.GetDocumentChunks(ctx, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	fetched, err := f.repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentPending, fetched.Status)
}

func TestProcessDocument_UnknownDocument(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.coord.ProcessDocument(context.Background(), core.ID(999), nil)
	assert.ErrorIs(t, err, core.ErrInvalidTarget)
}

func TestProcessDocument_MissingBlobIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	docs, err := f.repos.Documents.AddDocuments(context.Background(), &core.Document{
		Locator: "docs/ghost.txt",
		Format:  core.FormatPlainText,
	})
	require.NoError(t, err)

	_, err = f.coord.ProcessDocument(context.Background(), docs[0].Id, nil)
	assert.ErrorIs(t, err, core.ErrExtraction)

	fetched, err := f.repos.Documents.GetDocument(context.Background(), docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentFailed, fetched.Status)
}

func TestProcessDocument_EmptyContentIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/tiny.txt", "too small")

	_, err := f.coord.ProcessDocument(context.Background(), doc.Id, nil)
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	fetched, err := f.repos.Documents.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentFailed, fetched.Status)
}

func TestProcessDocument_EmbeddingFailureDegrades(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/sample.txt", sampleText)
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	coord, err := NewCoordinator(f.repos.Documents, f.repos.Chunks, mustBlobStore(t, f.blobRoot), f.embedder,
		WithRetry(1, 0))
	require.NoError(t, err)

	result, err := coord.ProcessDocument(context.Background(), doc.Id, &Params{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err, "embedding failure must not fail the document")

	assert.Greater(t, result.ChunkCount, 0)
	assert.Equal(t, 0, result.EmbeddedCount)

	// Document still completes; chunks stored without vectors
	fetched, err := f.repos.Documents.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentCompleted, fetched.Status)

	chunks, err := f.repos.Chunks.GetDocumentChunks(context.Background(), doc.Id)
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.Empty(t, chunk.Vector)
	}
}

func TestProcessDocument_ClassificationTagsChunks(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/report.txt",
		"This finance report covers the quarterly results. The finance team expects continued growth across all segments next year.")

	result, err := f.coord.ProcessDocument(context.Background(), doc.Id, nil)
	require.NoError(t, err)
	assert.Greater(t, result.TaggedCount, 0)

	chunks, err := f.repos.Chunks.GetDocumentChunks(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Contains(t, chunks[0].Tags, "finance")
}

func TestProcessDocument_NoChunkOverlap(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/sample.txt", sampleText)
	ctx := context.Background()

	result, err := f.coord.ProcessDocument(ctx, doc.Id, &Params{ChunkSize: 80, ChunkOverlap: NoChunkOverlap})
	require.NoError(t, err)
	require.Greater(t, result.ChunkCount, 1)

	// With overlap disabled no word appears in two chunks, so the joined
	// chunks reproduce the document word for word.
	chunks, err := f.repos.Chunks.GetDocumentChunks(ctx, doc.Id)
	require.NoError(t, err)

	var joined []string
	for _, chunk := range chunks {
		joined = append(joined, chunk.Content)
	}
	assert.Equal(t, strings.Fields(sampleText), strings.Fields(strings.Join(joined, " ")))
}

func TestRegenerateDocument_ReplacesChunks(t *testing.T) {
	f := newPipelineFixture(t)
	doc := f.addDocument(t, "docs/sample.txt", sampleText)
	ctx := context.Background()

	first, err := f.coord.ProcessDocument(ctx, doc.Id, &Params{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	// Different chunk size produces different chunks; old ones must go
	second, err := f.coord.RegenerateDocument(ctx, doc.Id, &Params{ChunkSize: 160, ChunkOverlap: 20})
	require.NoError(t, err)

	chunks, err := f.repos.Chunks.GetDocumentChunks(ctx, doc.Id)
	require.NoError(t, err)
	assert.Len(t, chunks, second.ChunkCount)
	assert.NotEqual(t, first.ChunkCount, second.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal, "ordinals must be contiguous after regeneration")
	}
}

func mustBlobStore(t *testing.T, root string) *fsblob.Store {
	t.Helper()
	store, err := fsblob.NewStore(root)
	require.NoError(t, err)
	return store
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 5, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error {
			return errors.New("permanent")
		}, 2, 0)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "permanent"))
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(canceled, func() error { return nil }, 3, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
