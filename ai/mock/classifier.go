package mock

import (
	"context"
	"strings"

	"github.com/poiesic/docquery/ai"
)

var _ ai.TagClassifier = (*MockTagClassifier)(nil)

// MockTagClassifier is a test double for ai.TagClassifier.
// It allows custom behavior injection via function fields.
type MockTagClassifier struct {
	// ClassifyTagsFunc is called by ClassifyTags if set.
	// If nil, uses default keyword-based behavior.
	ClassifyTagsFunc func(ctx context.Context, text string) ([]ai.ChunkTag, error)

	callCount int
}

// NewMockTagClassifier creates a mock classifier with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockTagClassifier() *MockTagClassifier {
	return &MockTagClassifier{}
}

// ClassifyTags assigns tags by simple keyword matching. Texts mentioning a
// tag name verbatim get that tag, so tests can steer the output by wording.
func (m *MockTagClassifier) ClassifyTags(ctx context.Context, text string) ([]ai.ChunkTag, error) {
	m.callCount++

	if m.ClassifyTagsFunc != nil {
		return m.ClassifyTagsFunc(ctx, text)
	}

	lower := strings.ToLower(text)
	var tags []ai.ChunkTag
	for _, name := range ai.TagTypes {
		if strings.Contains(lower, name) {
			tags = append(tags, ai.ChunkTag{Name: name, Confidence: 8})
		}
	}
	return tags, nil
}

// CallCount returns the number of times ClassifyTags was called.
func (m *MockTagClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockTagClassifier) Reset() {
	m.callCount = 0
	m.ClassifyTagsFunc = nil
}
