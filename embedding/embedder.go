package embedding

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/docquery/ai"
	"github.com/poiesic/docquery/core"
)

const (
	defaultCacheTTL     = time.Hour
	defaultCacheEntries = 100_000
)

// CachedEmbedder wraps an ai.Embedder with a TTL cache so unchanged content
// is never embedded twice. It implements ai.Embedder itself and can be
// dropped in anywhere an embedder is used.
type CachedEmbedder struct {
	inner   ai.Embedder
	modelId string
	cache   *ristretto.Cache[string, []float32]
	ttl     time.Duration
	logger  *slog.Logger
}

var _ ai.Embedder = (*CachedEmbedder)(nil)

// Option is a functional option for configuring a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL sets how long cached vectors stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(e *CachedEmbedder) {
		e.ttl = ttl
	}
}

// NewCachedEmbedder creates a caching embedder around inner. The modelId
// becomes part of every cache key, so embedders for different models can
// share a process without serving each other's vectors.
func NewCachedEmbedder(inner ai.Embedder, modelId string, opts ...Option) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: embedder is required", core.ErrConfiguration)
	}
	if modelId == "" {
		return nil, fmt.Errorf("%w: model id is required", core.ErrConfiguration)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: defaultCacheEntries * 10,
		MaxCost:     defaultCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}

	e := &CachedEmbedder{
		inner:   inner,
		modelId: modelId,
		cache:   cache,
		ttl:     defaultCacheTTL,
		logger:  slog.Default().With("component", "cached-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EmbedText returns the embedding for text, from cache when possible.
// Empty or whitespace-only text is rejected with core.ErrEmbedding.
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", core.ErrEmbedding)
	}

	key := e.cacheKey(text)
	if vector, ok := e.cache.Get(key); ok {
		e.logger.Debug("embedding cache hit", "length", len(text))
		return vector, nil
	}

	raw, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: model returned empty vector", core.ErrEmbedding)
	}

	vector := NormalizeVector(raw)
	e.cache.SetWithTTL(key, vector, 1, e.ttl)
	return vector, nil
}

// EmbedTexts returns embeddings for all texts in input order. Cached texts
// are served from the cache; only misses reach the model, in one batch.
// Any empty or whitespace-only text rejects the whole batch.
func (e *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: cannot embed empty text at index %d", core.ErrEmbedding, i)
		}
		if vector, ok := e.cache.Get(e.cacheKey(text)); ok {
			vectors[i] = vector
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	e.logger.Debug("batch embedding", "total", len(texts), "misses", len(missing))

	if len(missing) > 0 {
		raw, err := e.inner.EmbedTexts(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
		}
		if len(raw) != len(missing) {
			return nil, fmt.Errorf("%w: model returned %d vectors for %d texts", core.ErrEmbedding, len(raw), len(missing))
		}
		for j, vec := range raw {
			if len(vec) == 0 {
				return nil, fmt.Errorf("%w: model returned empty vector", core.ErrEmbedding)
			}
			vector := NormalizeVector(vec)
			i := missingIdx[j]
			vectors[i] = vector
			e.cache.SetWithTTL(e.cacheKey(missing[j]), vector, 1, e.ttl)
		}
	}

	return vectors, nil
}

// Flush makes pending cache writes visible. Intended for tests, which
// otherwise race ristretto's asynchronous admission.
func (e *CachedEmbedder) Flush() {
	e.cache.Wait()
}

// Close releases the cache.
func (e *CachedEmbedder) Close() {
	e.cache.Close()
}

// cacheKey builds the cache key from the model id and a content hash.
func (e *CachedEmbedder) cacheKey(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return e.modelId + ":" + hex.EncodeToString(h.Sum(nil))
}

// NormalizeVector scales a vector to unit length. Zero vectors are returned
// unchanged. The input is not modified.
func NormalizeVector(vector []float32) []float32 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		out := make([]float32, len(vector))
		copy(out, vector)
		return out
	}

	norm := 1.0 / math.Sqrt(sumSquares)
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) * norm)
	}
	return out
}
