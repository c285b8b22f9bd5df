package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/storage"
)

const defaultTopK = 10

// Composite rerank weights. They sum to 1 so the blended score stays in [0,1].
const (
	weightVector   = 0.6
	weightExact    = 0.25
	weightKeywords = 0.15
)

// Options controls a single search.
type Options struct {
	// TopK is the maximum number of results. Defaults to 10.
	TopK int

	// Filter restricts candidates by document or tags. Optional.
	Filter *storage.ChunkFilter

	// MinRelevance drops results scoring below it. Zero keeps everything.
	MinRelevance float32

	// Rerank enables the composite lexical rerank on top of vector scores.
	Rerank bool
}

// Result is the outcome of a search.
type Result struct {
	// Hits are the ranked results, best first.
	Hits []*core.RetrievalResult

	// Degraded is set when retrieval was unavailable (the query could not
	// be embedded) and Hits is empty for that reason rather than because
	// nothing matched.
	Degraded bool
}

// Searcher retrieves and ranks chunks for a query.
type Searcher struct {
	chunks    storage.ChunkRepository
	documents storage.DocumentRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher. The document repository is used only
// to resolve source labels and may be nil.
func NewSearcher(
	chunks storage.ChunkRepository,
	documents storage.DocumentRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:    chunks,
		documents: documents,
		embedder:  embedder,
		logger:    slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search embeds the query and returns ranked chunk results.
//
// When the embedder is unavailable the search degrades: the result is empty
// with Degraded set, and no error is returned. Hard failures from the index
// itself are still errors.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, degrading to empty result", "err", err)
		return &Result{Degraded: true}, nil
	}

	// Oversample so reranking and relevance filtering have candidates to
	// work with
	sampleSize := max(topK*3, topK)
	matches, err := s.chunks.FindSimilar(ctx, queryVector, sampleSize, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRetrieval, err)
	}

	s.logger.Debug("vector search complete", "candidates", len(matches), "topK", topK)

	hits := make([]*core.RetrievalResult, 0, len(matches))
	for _, match := range matches {
		score := core.ClampScore(match.Score)
		if opts.Rerank {
			score = s.rerankScore(score, match.Chunk.Content, query)
		}
		hits = append(hits, &core.RetrievalResult{
			ChunkId:    match.Chunk.Id,
			DocumentId: match.Chunk.DocumentId,
			Content:    match.Chunk.Content,
			Relevance:  score,
			Source:     s.sourceLabel(ctx, match.Chunk.DocumentId),
			Tags:       match.Chunk.Tags,
		})
	}

	// Stable sort preserves vector rank as the tiebreak: candidates arrive
	// ordered by vector score, so equal composite scores keep that order
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Relevance > hits[j].Relevance
	})

	filtered := hits[:0]
	for _, hit := range hits {
		if hit.Relevance >= opts.MinRelevance {
			filtered = append(filtered, hit)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	return &Result{Hits: filtered}, nil
}

// SearchByTags returns chunks carrying all the given tags. No embedding is
// involved; results carry full relevance since tag matching is exact.
func (s *Searcher) SearchByTags(ctx context.Context, tags []string, topK int, filter *storage.ChunkFilter) ([]*core.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	chunks, err := s.chunks.FindByTags(ctx, tags, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRetrieval, err)
	}

	results := make([]*core.RetrievalResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, &core.RetrievalResult{
			ChunkId:    chunk.Id,
			DocumentId: chunk.DocumentId,
			Content:    chunk.Content,
			Relevance:  1.0,
			Source:     s.sourceLabel(ctx, chunk.DocumentId),
			Tags:       chunk.Tags,
		})
	}
	return results, nil
}

// FindSimilarToChunk returns the chunks most similar to an existing chunk,
// reusing its stored vector. The chunk itself is excluded from the results;
// excludeSameDocument additionally drops its siblings.
// Returns core.ErrNotFound when the chunk is missing or has no embedding.
func (s *Searcher) FindSimilarToChunk(ctx context.Context, chunkId core.ID, topK int, excludeSameDocument bool) ([]*core.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	chunk, err := s.chunks.GetChunk(ctx, chunkId)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d", core.ErrNotFound, chunkId)
	}
	if len(chunk.Vector) == 0 {
		return nil, fmt.Errorf("%w: chunk %d has no embedding", core.ErrNotFound, chunkId)
	}

	filter := &storage.ChunkFilter{}
	if excludeSameDocument {
		filter.ExcludeDocumentIds = []core.ID{chunk.DocumentId}
	}

	// One extra candidate covers the chunk matching itself
	matches, err := s.chunks.FindSimilar(ctx, chunk.Vector, topK+1, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRetrieval, err)
	}

	results := make([]*core.RetrievalResult, 0, topK)
	for _, match := range matches {
		if match.Chunk.Id == chunkId {
			continue
		}
		if len(results) >= topK {
			break
		}
		results = append(results, &core.RetrievalResult{
			ChunkId:    match.Chunk.Id,
			DocumentId: match.Chunk.DocumentId,
			Content:    match.Chunk.Content,
			Relevance:  core.ClampScore(match.Score),
			Source:     s.sourceLabel(ctx, match.Chunk.DocumentId),
			Tags:       match.Chunk.Tags,
		})
	}
	return results, nil
}

// rerankScore blends the vector score with lexical signals.
func (s *Searcher) rerankScore(base float32, content, query string) float32 {
	var exact float32
	if containsExactPhrase(content, query) {
		exact = 1
	}
	overlap := keywordOverlap(content, query)

	return core.ClampScore(base*weightVector + exact*weightExact + overlap*weightKeywords)
}

// sourceLabel resolves a document id to its locator for display. Falls back
// to a numeric label when the document repository is absent or the lookup
// fails.
func (s *Searcher) sourceLabel(ctx context.Context, documentId core.ID) string {
	if s.documents != nil {
		if doc, err := s.documents.GetDocument(ctx, documentId); err == nil {
			return doc.Locator
		}
	}
	return fmt.Sprintf("document %d", documentId)
}
