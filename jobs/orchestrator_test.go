package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docquery/ai/mock"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/pipeline"
	badgerstore "github.com/poiesic/docquery/storage/badger"
	"github.com/poiesic/docquery/storage/fsblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobSampleText = "The first sentence sets the scene for everything. The second sentence develops the idea further with more detail. The third sentence brings the argument to a close."

type jobFixture struct {
	repos    *badgerstore.MemoryRepositories
	blobRoot string
	embedder *mock.MockEmbedder
	orch     *Orchestrator
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	blobRoot := t.TempDir()
	blobs, err := fsblob.NewStore(blobRoot)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	coord, err := pipeline.NewCoordinator(repos.Documents, repos.Chunks, blobs, embedder,
		pipeline.WithRetry(1, 0))
	require.NoError(t, err)

	orch, err := NewOrchestrator(repos.Jobs, repos.Documents, repos.Chunks, coord,
		WithPoolSize(1))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	return &jobFixture{
		repos:    repos,
		blobRoot: blobRoot,
		embedder: embedder,
		orch:     orch,
	}
}

func (f *jobFixture) addDocument(t *testing.T, locator, content string) *core.Document {
	t.Helper()

	if content != "" {
		path := filepath.Join(f.blobRoot, filepath.FromSlash(locator))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	docs, err := f.repos.Documents.AddDocuments(context.Background(), &core.Document{
		Locator: locator,
		Format:  core.FormatPlainText,
	})
	require.NoError(t, err)
	return docs[0]
}

// waitForTerminal polls until the job reaches Success or Failure.
func waitForTerminal(t *testing.T, orch *Orchestrator, jobId core.ID) *core.Job {
	t.Helper()

	var job *core.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = orch.Status(context.Background(), jobId)
		return err == nil && job.Status.Terminal()
	}, 10*time.Second, 10*time.Millisecond, "job %d never reached a terminal state", jobId)
	return job
}

func TestSubmit_Validation(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	t.Run("nil spec", func(t *testing.T) {
		_, err := f.orch.Submit(ctx, nil)
		assert.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("no documents", func(t *testing.T) {
		_, err := f.orch.Submit(ctx, &Spec{})
		assert.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{9999}})
		assert.ErrorIs(t, err, core.ErrInvalidTarget)
	})
}

func TestSubmit_SingleDocument(t *testing.T) {
	f := newJobFixture(t)
	doc := f.addDocument(t, "docs/a.txt", jobSampleText)
	ctx := context.Background()

	job, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{doc.Id}})
	require.NoError(t, err)
	assert.Equal(t, core.JobTypeSingle, job.Type)
	assert.Equal(t, core.JobPending, job.Status)

	done := waitForTerminal(t, f.orch, job.Id)
	assert.Equal(t, core.JobSuccess, done.Status)
	assert.Empty(t, done.Error)
	assert.Greater(t, done.Result.ChunkCount, 0)
	assert.Equal(t, done.Result.ChunkCount, done.Result.EmbeddedCount)
	assert.Equal(t, []core.ID{doc.Id}, done.Result.ProcessedIds)
	assert.Empty(t, done.Result.FailedIds)
	assert.Equal(t, done.Progress.Total, done.Progress.Current)
	assert.GreaterOrEqual(t, done.Result.DurationMicros, int64(0))

	fetched, err := f.repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentCompleted, fetched.Status)
}

func TestSubmit_FailureMarksJobAndDocument(t *testing.T) {
	f := newJobFixture(t)
	// Document registered without a blob behind it
	doc := f.addDocument(t, "docs/ghost.txt", "")
	ctx := context.Background()

	job, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{doc.Id}})
	require.NoError(t, err)

	done := waitForTerminal(t, f.orch, job.Id)
	assert.Equal(t, core.JobFailure, done.Status)
	assert.NotEmpty(t, done.Error)
	assert.Equal(t, []core.ID{doc.Id}, done.Result.FailedIds)

	fetched, err := f.repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentFailed, fetched.Status)
}

func TestSubmit_AlreadyInProgress(t *testing.T) {
	f := newJobFixture(t)
	doc := f.addDocument(t, "docs/a.txt", jobSampleText)
	ctx := context.Background()

	// Hold the job open by blocking its embedding call
	release := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		<-release
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 384)
		}
		return vectors, nil
	}

	job, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{doc.Id}})
	require.NoError(t, err)

	_, err = f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{doc.Id}})
	assert.ErrorIs(t, err, core.ErrAlreadyInProgress)

	close(release)
	waitForTerminal(t, f.orch, job.Id)

	// Terminal job releases the document for new submissions
	second, err := f.orch.Submit(ctx, &Spec{Type: core.JobTypeRegenerate, DocumentIds: []core.ID{doc.Id}})
	require.NoError(t, err)
	done := waitForTerminal(t, f.orch, second.Id)
	assert.Equal(t, core.JobSuccess, done.Status)
}

func TestSubmit_BatchPartialFailure(t *testing.T) {
	f := newJobFixture(t)
	good := f.addDocument(t, "docs/good.txt", jobSampleText)
	bad := f.addDocument(t, "docs/bad.txt", "")
	ctx := context.Background()

	job, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{good.Id, bad.Id}})
	require.NoError(t, err)
	assert.Equal(t, core.JobTypeBatch, job.Type)

	done := waitForTerminal(t, f.orch, job.Id)
	assert.Equal(t, core.JobSuccess, done.Status, "one failure must not fail the batch")
	assert.Equal(t, []core.ID{good.Id}, done.Result.ProcessedIds)
	assert.Equal(t, []core.ID{bad.Id}, done.Result.FailedIds)
	assert.Equal(t, 2, done.Progress.Total)
	assert.Equal(t, 2, done.Progress.Current)
}

func TestCancel_PreventsNotYetStartedWork(t *testing.T) {
	f := newJobFixture(t)
	first := f.addDocument(t, "docs/first.txt", jobSampleText)
	second := f.addDocument(t, "docs/second.txt", jobSampleText)
	ctx := context.Background()

	// Occupy the single worker so the second job stays queued
	release := make(chan struct{})
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		<-release
		return nil, context.Canceled
	}

	running, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{first.Id}})
	require.NoError(t, err)

	queued, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{second.Id}})
	require.NoError(t, err)

	require.NoError(t, f.orch.Cancel(ctx, queued.Id))
	close(release)

	waitForTerminal(t, f.orch, running.Id)
	done := waitForTerminal(t, f.orch, queued.Id)
	assert.Equal(t, core.JobFailure, done.Status)
	assert.Contains(t, done.Error, "canceled")

	// Canceled before start, so the document was never touched
	fetched, err := f.repos.Documents.GetDocument(ctx, second.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentPending, fetched.Status)
}

func TestCancel_StopsRemainingBatchDocuments(t *testing.T) {
	f := newJobFixture(t)
	first := f.addDocument(t, "docs/first.txt", jobSampleText)
	second := f.addDocument(t, "docs/second.txt", jobSampleText)
	third := f.addDocument(t, "docs/third.txt", jobSampleText)
	ctx := context.Background()

	// Block the first document mid-embed so the cancel lands while the
	// batch is in flight.
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		once.Do(func() { close(started) })
		<-release
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 384)
		}
		return vectors, nil
	}

	job, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{first.Id, second.Id, third.Id}})
	require.NoError(t, err)

	<-started
	require.NoError(t, f.orch.Cancel(ctx, job.Id))
	close(release)

	done := waitForTerminal(t, f.orch, job.Id)
	assert.Equal(t, core.JobFailure, done.Status)
	assert.Contains(t, done.Error, "canceled")

	// The in-flight document ran to completion; the rest never started.
	assert.Equal(t, []core.ID{first.Id}, done.Result.ProcessedIds)
	assert.Less(t, len(done.Result.ProcessedIds), 3)
	assert.Equal(t, 1, done.Progress.Current, "partial progress stands on cancel")

	for _, id := range []core.ID{second.Id, third.Id} {
		fetched, err := f.repos.Documents.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.DocumentPending, fetched.Status)
	}

	// The terminal job releases its documents and the stale cancel flag.
	resubmit, err := f.orch.Submit(ctx, &Spec{DocumentIds: []core.ID{second.Id}})
	require.NoError(t, err)
	redone := waitForTerminal(t, f.orch, resubmit.Id)
	assert.Equal(t, core.JobSuccess, redone.Status)
}

func TestCancel_UnknownJob(t *testing.T) {
	f := newJobFixture(t)

	err := f.orch.Cancel(context.Background(), core.ID(4242))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStatus_UnknownJob(t *testing.T) {
	f := newJobFixture(t)

	_, err := f.orch.Status(context.Background(), core.ID(4242))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCleanupJob_RemovesOrphanedChunks(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	kept := f.addDocument(t, "docs/kept.txt", jobSampleText)
	orphaned := f.addDocument(t, "docs/orphaned.txt", jobSampleText)

	// Chunks for both, then drop one document so its chunks are orphaned
	for _, doc := range []*core.Document{kept, orphaned} {
		_, err := f.repos.Chunks.UpsertChunks(ctx, &core.Chunk{
			DocumentId: doc.Id,
			Ordinal:    0,
			Content:    "chunk for " + doc.Locator,
		})
		require.NoError(t, err)
	}
	require.NoError(t, f.repos.Documents.DeleteDocuments(ctx, orphaned.Id))

	job, err := f.orch.Submit(ctx, &Spec{
		Type:        core.JobTypeCleanup,
		DocumentIds: []core.ID{kept.Id, orphaned.Id},
	})
	require.NoError(t, err)

	done := waitForTerminal(t, f.orch, job.Id)
	assert.Equal(t, core.JobSuccess, done.Status)
	assert.Equal(t, 1, done.Result.ChunkCount)
	assert.Equal(t, []core.ID{orphaned.Id}, done.Result.ProcessedIds)

	// Orphaned chunks gone, live document untouched
	orphanChunks, err := f.repos.Chunks.GetDocumentChunks(ctx, orphaned.Id)
	require.NoError(t, err)
	assert.Empty(t, orphanChunks)

	keptChunks, err := f.repos.Chunks.GetDocumentChunks(ctx, kept.Id)
	require.NoError(t, err)
	assert.Len(t, keptChunks, 1)
}
