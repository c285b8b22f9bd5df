package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/ai/mock"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/search"
	badgerstore "github.com/poiesic/docquery/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerFixture struct {
	repos    *badgerstore.MemoryRepositories
	embedder *mock.MockEmbedder
	primary  *mock.MockGenerationBackend
	fallback *mock.MockGenerationBackend
	synth    *Synthesizer
}

func newAnswerFixture(t *testing.T) *answerFixture {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(repos.Close)

	embedder := mock.NewMockEmbedder()
	searcher, err := search.NewSearcher(repos.Chunks, repos.Documents, embedder)
	require.NoError(t, err)

	primary := mock.NewMockGenerationBackend("primary-model")
	fallback := mock.NewMockGenerationBackend("fallback-model")
	registry := NewRegistry(primary, fallback)

	synth, err := NewSynthesizer(searcher, registry, WithAnswerRepository(repos.Answers))
	require.NoError(t, err)

	return &answerFixture{
		repos:    repos,
		embedder: embedder,
		primary:  primary,
		fallback: fallback,
		synth:    synth,
	}
}

// seedChunk indexes a chunk whose vector matches what the mock embedder
// produces for the given query, so retrieval finds it.
func (f *answerFixture) seedChunk(t *testing.T, documentId core.ID, content, matchingQuery string) {
	t.Helper()
	vector := mock.DeterministicVector(matchingQuery, 384)
	_, err := f.repos.Chunks.UpsertChunks(context.Background(), &core.Chunk{
		DocumentId: documentId,
		Ordinal:    0,
		Content:    content,
		Vector:     vector,
	})
	require.NoError(t, err)
}

func TestNewSynthesizer_Validation(t *testing.T) {
	_, err := NewSynthesizer(nil, NewRegistry())
	assert.ErrorIs(t, err, ErrSearcherRequired)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	f := newAnswerFixture(t)

	_, err := f.synth.Answer(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswer_NoContextIsDeterministic(t *testing.T) {
	f := newAnswerFixture(t)

	record, err := f.synth.Answer(context.Background(), "what is the airspeed of a swallow?", nil)
	require.NoError(t, err)

	assert.Equal(t, ModelNone, record.ModelUsed)
	assert.Equal(t, float32(0), record.Confidence)
	assert.Empty(t, record.SourceChunkIds)
	assert.Equal(t, 0, f.primary.CallCount(), "no backend call without context")

	// Same question again yields the same answer text
	again, err := f.synth.Answer(context.Background(), "what is the airspeed of a swallow?", nil)
	require.NoError(t, err)
	assert.Equal(t, record.Answer, again.Answer)
}

func TestAnswer_UsesRetrievedContext(t *testing.T) {
	f := newAnswerFixture(t)
	question := "what color is the sky?"
	f.seedChunk(t, 1, "The sky is blue during the day.", question)

	var capturedPrompt string
	f.primary.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
		capturedPrompt = userPrompt
		return "The sky is blue.", nil
	}

	record, err := f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err)

	assert.Equal(t, "primary-model", record.ModelUsed)
	assert.Equal(t, "The sky is blue.", record.Answer)
	assert.NotEmpty(t, record.SourceChunkIds)
	assert.Greater(t, record.Confidence, float32(0))
	assert.Contains(t, capturedPrompt, "The sky is blue during the day.")
	assert.Contains(t, capturedPrompt, question)
}

func TestAnswer_FallsBackWhenPrimaryUnavailable(t *testing.T) {
	f := newAnswerFixture(t)
	question := "how do volcanoes form?"
	f.seedChunk(t, 1, "Volcanoes form where magma reaches the surface.", question)
	f.primary.Available = false

	record, err := f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err)

	assert.Equal(t, "fallback-model", record.ModelUsed)
	assert.Equal(t, 0, f.primary.CallCount())
	assert.Equal(t, 1, f.fallback.CallCount())
}

func TestAnswer_FallsBackWhenPrimaryErrors(t *testing.T) {
	f := newAnswerFixture(t)
	question := "why is the ocean salty?"
	f.seedChunk(t, 1, "Rivers carry dissolved minerals into the ocean.", question)
	f.primary.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
		return "", errors.New("model overloaded")
	}

	record, err := f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err, "backend failure must not propagate")

	assert.Equal(t, "fallback-model", record.ModelUsed)
	assert.NotEqual(t, ModelError, record.ModelUsed)
}

func TestAnswer_AllBackendsFailYieldsErrorRecord(t *testing.T) {
	f := newAnswerFixture(t)
	question := "what causes tides?"
	f.seedChunk(t, 1, "Tides are caused by the moon's gravity.", question)

	fail := func(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
		return "", errors.New("boom")
	}
	f.primary.GenerateFunc = fail
	f.fallback.GenerateFunc = fail

	record, err := f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err)
	assert.Equal(t, ModelError, record.ModelUsed)
	assert.Equal(t, float32(0), record.Confidence)
}

func TestAnswer_ModelPreference(t *testing.T) {
	f := newAnswerFixture(t)
	question := "who wrote the iliad?"
	f.seedChunk(t, 1, "The Iliad is attributed to Homer.", question)

	record, err := f.synth.Answer(context.Background(), question, &Options{
		ModelPreference: "fallback-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback-model", record.ModelUsed)
	assert.Equal(t, 0, f.primary.CallCount())
}

func TestAnswer_ForwardsGenerationOptions(t *testing.T) {
	f := newAnswerFixture(t)
	question := "how tall is mount everest?"
	f.seedChunk(t, 1, "Mount Everest rises 8849 meters above sea level.", question)

	_, err := f.synth.Answer(context.Background(), question, &Options{
		MaxTokens:   256,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	opts := f.primary.LastOptions()
	assert.Equal(t, 256, opts.MaxTokens)
	assert.InDelta(t, 0.7, opts.Temperature, 1e-9)

	// Defaults apply when the caller leaves options unset.
	f.primary.Reset()
	_, err = f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err)

	opts = f.primary.LastOptions()
	assert.Zero(t, opts.MaxTokens)
	assert.InDelta(t, 0.2, opts.Temperature, 1e-9)
}

func TestAnswer_PersistsRecord(t *testing.T) {
	f := newAnswerFixture(t)
	question := "what is photosynthesis?"
	f.seedChunk(t, 1, "Photosynthesis converts light into chemical energy.", question)

	record, err := f.synth.Answer(context.Background(), question, nil)
	require.NoError(t, err)
	require.NotZero(t, record.Id)

	stored, err := f.repos.Answers.GetAnswerRecord(context.Background(), record.Id)
	require.NoError(t, err)
	assert.Equal(t, question, stored.Question)
	assert.Equal(t, record.Answer, stored.Answer)
}

func TestBatchAnswer_PreservesOrder(t *testing.T) {
	f := newAnswerFixture(t)
	questions := []string{"question one?", "question two?", "question three?"}
	for i, q := range questions {
		f.seedChunk(t, core.ID(i+1), "Some relevant context for the question.", q)
	}

	f.primary.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
		return "answer for: " + userPrompt[len(userPrompt)-13:], nil
	}

	records, err := f.synth.BatchAnswer(context.Background(), questions, nil, 2)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, questions[i], record.Question, "slot %d out of order", i)
	}
}

func TestBatchAnswer_OneFailureDoesNotAbort(t *testing.T) {
	f := newAnswerFixture(t)
	questions := []string{"good question?", "", "another good question?"}
	f.seedChunk(t, 1, "Context for the good questions.", questions[0])
	f.seedChunk(t, 2, "Context for the other good question.", questions[2])

	records, err := f.synth.BatchAnswer(context.Background(), questions, nil, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.NotEqual(t, ModelError, records[0].ModelUsed)
	assert.Equal(t, ModelError, records[1].ModelUsed, "empty question becomes an error record")
	assert.NotEqual(t, ModelError, records[2].ModelUsed)
}

func TestBatchAnswer_Empty(t *testing.T) {
	f := newAnswerFixture(t)

	records, err := f.synth.BatchAnswer(context.Background(), nil, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRegistry_Select(t *testing.T) {
	a := mock.NewMockGenerationBackend("a")
	b := mock.NewMockGenerationBackend("b")
	c := mock.NewMockGenerationBackend("c")
	registry := NewRegistry(a, b, c)
	ctx := context.Background()

	t.Run("priority order by default", func(t *testing.T) {
		selected := registry.Select(ctx, "")
		require.Len(t, selected, 3)
		assert.Equal(t, "a", selected[0].Name())
	})

	t.Run("preference moves to front", func(t *testing.T) {
		selected := registry.Select(ctx, "b")
		require.Len(t, selected, 3)
		assert.Equal(t, "b", selected[0].Name())
		assert.Equal(t, "a", selected[1].Name())
	})

	t.Run("unavailable skipped", func(t *testing.T) {
		b.Available = false
		defer func() { b.Available = true }()

		selected := registry.Select(ctx, "b")
		require.Len(t, selected, 2)
		assert.Equal(t, "a", selected[0].Name())
	})

	t.Run("unknown preference falls back to priority", func(t *testing.T) {
		selected := registry.Select(ctx, "nope")
		require.Len(t, selected, 3)
		assert.Equal(t, "a", selected[0].Name())
	})
}
