package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_AddAndGet(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	docs, err := repos.Documents.AddDocuments(ctx, &core.Document{
		Locator: "notes/plan.md",
		Format:  core.FormatMarkdown,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotZero(t, docs[0].Id)
	assert.Equal(t, core.DocumentPending, docs[0].Status)
	assert.False(t, docs[0].InsertedAt.IsZero())

	fetched, err := repos.Documents.GetDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "notes/plan.md", fetched.Locator)
}

func TestDocumentRepository_GetMissing(t *testing.T) {
	repos := setupRepos(t)

	_, err := repos.Documents.GetDocument(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentRepository_UpdatePreservesInsertedAt(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	docs, err := repos.Documents.AddDocuments(ctx, &core.Document{
		Locator: "a.txt",
		Format:  core.FormatPlainText,
	})
	require.NoError(t, err)
	original := docs[0]

	updated := *original
	updated.Status = core.DocumentCompleted
	result, err := repos.Documents.UpdateDocuments(ctx, &updated)
	require.NoError(t, err)
	require.Len(t, result, 1)

	fetched, err := repos.Documents.GetDocument(ctx, original.Id)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentCompleted, fetched.Status)
	assert.Equal(t, original.InsertedAt.UnixMicro(), fetched.InsertedAt.UnixMicro())
}

func TestDocumentRepository_ListByStatus(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	_, err := repos.Documents.AddDocuments(ctx,
		&core.Document{Locator: "one.txt", Format: core.FormatPlainText},
		&core.Document{Locator: "two.txt", Format: core.FormatPlainText},
	)
	require.NoError(t, err)

	docs, err := repos.Documents.ListDocuments(ctx, core.DocumentPending, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	completed, err := repos.Documents.ListDocuments(ctx, core.DocumentCompleted, 0)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestAnswerRepository_ListNewestFirst(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	for _, q := range []string{"first question", "second question", "third question"} {
		_, err := repos.Answers.AddAnswerRecords(ctx, &core.AnswerRecord{
			Question: q,
			Answer:   "answer to " + q,
		})
		require.NoError(t, err)
	}

	records, err := repos.Answers.ListAnswerRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, !records[0].CreatedAt.Before(records[1].CreatedAt))
}
