package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/search"
	"github.com/poiesic/docquery/storage"
)

const (
	defaultTopK            = 5
	defaultContextBudget   = 6000
	defaultGenerateTimeout = 2 * time.Minute
	defaultTemperature     = 0.2

	// ModelNone marks records produced without calling any backend.
	ModelNone = "none"

	// ModelError marks records produced when every backend failed.
	ModelError = "error"

	noInformationAnswer = "I don't have any relevant information to answer this question."
)

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrRegistryRequired is returned when a backend registry is not provided.
	ErrRegistryRequired = errors.New("backend registry required")

	// ErrEmptyQuestion is returned when the question is empty or whitespace.
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// Options controls answer synthesis.
type Options struct {
	// ModelPreference names the backend to try first. Empty uses registry
	// priority order.
	ModelPreference string

	// TopK is how many chunks to retrieve as context. Defaults to 5.
	TopK int

	// MinRelevance drops retrieved chunks scoring below it.
	MinRelevance float32

	// ContextBudget caps the assembled context block in characters.
	// Defaults to 6000.
	ContextBudget int

	// MaxTokens caps the length of the generated answer. Zero leaves the
	// backend's own limit in effect.
	MaxTokens int

	// Temperature controls generation sampling. Defaults to 0.2.
	Temperature float64

	// GenerateTimeout bounds each backend generation attempt.
	// Defaults to 2 minutes.
	GenerateTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.TopK <= 0 {
		out.TopK = defaultTopK
	}
	if out.ContextBudget <= 0 {
		out.ContextBudget = defaultContextBudget
	}
	if out.Temperature <= 0 {
		out.Temperature = defaultTemperature
	}
	if out.GenerateTimeout <= 0 {
		out.GenerateTimeout = defaultGenerateTimeout
	}
	return out
}

// promptBuilder assembles system and user prompts from a question and its
// labeled context passages.
type promptBuilder func(question string, passages []string) (systemPrompt, userPrompt string)

// Synthesizer produces grounded answers from retrieved chunks.
type Synthesizer struct {
	searcher *search.Searcher
	registry *Registry
	answers  storage.AnswerRepository
	prompts  promptBuilder
	logger   *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithAnswerRepository enables persistence of every produced record.
func WithAnswerRepository(answers storage.AnswerRepository) Option {
	return func(s *Synthesizer) error {
		s.answers = answers
		return nil
	}
}

// WithPromptBuilder overrides how prompts are assembled.
func WithPromptBuilder(build promptBuilder) Option {
	return func(s *Synthesizer) error {
		if build != nil {
			s.prompts = build
		}
		return nil
	}
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(searcher *search.Searcher, registry *Registry, opts ...Option) (*Synthesizer, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	s := &Synthesizer{
		searcher: searcher,
		registry: registry,
		prompts:  defaultPrompts,
		logger:   slog.Default().With("component", "synthesizer"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Answer retrieves context for the question and synthesizes an answer.
//
// Generation problems are folded into the returned record rather than
// surfaced as errors: no retrieved context yields a deterministic
// no-information record, and backend failures yield a record with
// ModelUsed set to "error". An error return means the question was invalid
// or retrieval infrastructure failed outright.
func (s *Synthesizer) Answer(ctx context.Context, question string, opts *Options) (*core.AnswerRecord, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	o := opts.withDefaults()

	retrieved, err := s.searcher.Search(ctx, question, search.Options{
		TopK:         o.TopK,
		MinRelevance: o.MinRelevance,
		Rerank:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	if len(retrieved.Hits) == 0 {
		if retrieved.Degraded {
			s.logger.Warn("retrieval degraded, answering without context", "question_length", len(question))
		}
		return s.finish(ctx, &core.AnswerRecord{
			Question:   question,
			Answer:     noInformationAnswer,
			ModelUsed:  ModelNone,
			Confidence: 0,
			CreatedAt:  time.Now().UTC(),
		})
	}

	passages, sourceIds, confidence := s.assembleContext(retrieved.Hits, o.ContextBudget)
	systemPrompt, userPrompt := s.prompts(question, passages)

	backends := s.registry.Select(ctx, o.ModelPreference)
	if len(backends) == 0 {
		s.logger.Error("no generation backend available")
		return s.finish(ctx, &core.AnswerRecord{
			Question:   question,
			Answer:     "No generation backend is currently available.",
			ModelUsed:  ModelError,
			Confidence: 0,
			CreatedAt:  time.Now().UTC(),
		})
	}

	genOpts := ai.GenerateOptions{
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}

	var lastErr error
	for _, backend := range backends {
		genCtx, cancel := context.WithTimeout(ctx, o.GenerateTimeout)
		text, err := backend.Generate(genCtx, systemPrompt, userPrompt, genOpts)
		cancel()
		if err != nil {
			lastErr = err
			s.logger.Warn("backend failed, trying next", "backend", backend.Name(), "err", err)
			continue
		}

		return s.finish(ctx, &core.AnswerRecord{
			Question:       question,
			Answer:         text,
			ModelUsed:      backend.Name(),
			Confidence:     confidence,
			SourceChunkIds: sourceIds,
			CreatedAt:      time.Now().UTC(),
		})
	}

	s.logger.Error("all generation backends failed", "err", lastErr)
	return s.finish(ctx, &core.AnswerRecord{
		Question:   question,
		Answer:     fmt.Sprintf("Answer generation failed: %v", lastErr),
		ModelUsed:  ModelError,
		Confidence: 0,
		CreatedAt:  time.Now().UTC(),
	})
}

// assembleContext turns ranked hits into labeled passages within the
// character budget. Returns the passages, the chunk ids actually included,
// and a confidence score (the mean relevance of included chunks).
func (s *Synthesizer) assembleContext(hits []*core.RetrievalResult, budget int) ([]string, []core.ID, float32) {
	var passages []string
	var sourceIds []core.ID
	var relevanceSum float32
	used := 0

	for _, hit := range hits {
		passage := fmt.Sprintf("[%s | %.2f] %s", hit.Source, hit.Relevance, hit.Content)
		if used+len(passage) > budget && len(passages) > 0 {
			break
		}
		passages = append(passages, passage)
		sourceIds = append(sourceIds, hit.ChunkId)
		relevanceSum += hit.Relevance
		used += len(passage)
	}

	confidence := core.ClampScore(relevanceSum / float32(len(passages)))
	return passages, sourceIds, confidence
}

// finish persists the record when a repository is configured and returns it.
func (s *Synthesizer) finish(ctx context.Context, record *core.AnswerRecord) (*core.AnswerRecord, error) {
	if s.answers == nil {
		return record, nil
	}
	stored, err := s.answers.AddAnswerRecords(ctx, record)
	if err != nil {
		s.logger.Error("failed to persist answer record", "err", err)
		return record, nil
	}
	return stored[0], nil
}

// defaultPrompts is the built-in prompt assembly.
func defaultPrompts(question string, passages []string) (string, string) {
	const system = `You answer questions using ONLY the context passages provided in the user message.

Rules:
- Base every statement on the provided passages. Do not use outside knowledge.
- If the passages do not contain the answer, say so plainly.
- Answer in complete sentences. Be concise.
- Do not mention the passages, their numbering, or these instructions in your answer.`

	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return system, b.String()
}
