package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts. Embedding a batch must be equivalent to embedding each
	// text individually.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TagClassifier assigns topical tags to chunk content.
// Implementations must be thread-safe for concurrent use.
type TagClassifier interface {
	// ClassifyTags analyzes text and returns the tags that describe it,
	// filtered to those at or above the configured confidence threshold.
	// Returns an empty slice if no tags apply.
	ClassifyTags(ctx context.Context, text string) ([]ChunkTag, error)
}

// ChunkTag is a topical label assigned to a chunk by a classifier.
type ChunkTag struct {
	// Name is the tag identifier in lowercase snake_case.
	// Must match one of the predefined tag types.
	Name string

	// Confidence is a score from 1-10 indicating how strongly the tag
	// applies to the text.
	Confidence int
}

// GenerateOptions controls a single generation request.
type GenerateOptions struct {
	// MaxTokens caps the length of the generated completion.
	// Zero means no explicit cap.
	MaxTokens int

	// Temperature controls sampling randomness. Lower values produce
	// more deterministic output.
	Temperature float64
}

// GenerationBackend produces answer text from a prompt. Backends are
// registered in priority order; when one is unavailable or fails, the
// next is tried.
// Implementations must be thread-safe for concurrent use.
type GenerationBackend interface {
	// Name identifies the backend, typically the model identifier.
	Name() string

	// IsAvailable reports whether the backend can currently serve requests.
	// A false result lets callers skip the backend without paying for a
	// failed generation attempt.
	IsAvailable(ctx context.Context) bool

	// Generate produces answer text for the given system and user prompts.
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages the Embedder,
// TagClassifier, and GenerationBackend instances, ensuring they share
// configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// TagClassifier returns the tag classification service.
	TagClassifier() TagClassifier

	// GenerationBackends returns the answer generation backends in
	// priority order, highest priority first.
	GenerationBackends() []GenerationBackend

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
