package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/docquery/ai"
)

var _ ai.GenerationBackend = (*MockGenerationBackend)(nil)

// MockGenerationBackend is a test double for ai.GenerationBackend.
// It allows custom behavior injection via function fields.
type MockGenerationBackend struct {
	// BackendName is returned by Name. Defaults to "mock" if empty.
	BackendName string

	// Available controls IsAvailable when AvailableFunc is nil.
	// Defaults to true.
	Available bool

	// AvailableFunc is called by IsAvailable if set.
	AvailableFunc func(ctx context.Context) bool

	// GenerateFunc is called by Generate if set.
	// If nil, returns a deterministic answer derived from the user prompt.
	GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error)

	callCount int
	lastOpts  ai.GenerateOptions
}

// NewMockGenerationBackend creates an available mock backend with the given name.
func NewMockGenerationBackend(name string) *MockGenerationBackend {
	return &MockGenerationBackend{
		BackendName: name,
		Available:   true,
	}
}

// Name returns the configured backend name.
func (m *MockGenerationBackend) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

// IsAvailable reports the configured availability.
func (m *MockGenerationBackend) IsAvailable(ctx context.Context) bool {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(ctx)
	}
	return m.Available
}

// Generate returns a deterministic answer derived from the user prompt.
func (m *MockGenerationBackend) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ai.GenerateOptions) (string, error) {
	m.callCount++
	m.lastOpts = opts

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, userPrompt, opts)
	}

	return fmt.Sprintf("mock answer from %s (%d chars of prompt)", m.Name(), len(userPrompt)), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerationBackend) CallCount() int {
	return m.callCount
}

// LastOptions returns the options passed to the most recent Generate call.
func (m *MockGenerationBackend) LastOptions() ai.GenerateOptions {
	return m.lastOpts
}

// Reset clears the call count and any injected behavior.
func (m *MockGenerationBackend) Reset() {
	m.callCount = 0
	m.lastOpts = ai.GenerateOptions{}
	m.AvailableFunc = nil
	m.GenerateFunc = nil
	m.Available = true
}
