package answer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/docquery/ai"
)

// Registry holds generation backends in priority order, highest first.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends []ai.GenerationBackend
	logger   *slog.Logger
}

// NewRegistry creates a registry with the given backends, highest
// priority first.
func NewRegistry(backends ...ai.GenerationBackend) *Registry {
	return &Registry{
		backends: backends,
		logger:   slog.Default().With("component", "backend-registry"),
	}
}

// Register appends a backend at the lowest priority.
func (r *Registry) Register(backend ai.GenerationBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = append(r.backends, backend)
}

// Backends returns the registered backends in priority order.
func (r *Registry) Backends() []ai.GenerationBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ai.GenerationBackend, len(r.backends))
	copy(out, r.backends)
	return out
}

// Select returns the backends to try for a request, in order. A non-empty
// preference moves the named backend to the front; the rest follow in
// priority order. Unavailable backends are skipped.
func (r *Registry) Select(ctx context.Context, preference string) []ai.GenerationBackend {
	all := r.Backends()

	ordered := make([]ai.GenerationBackend, 0, len(all))
	if preference != "" {
		for _, b := range all {
			if b.Name() == preference {
				ordered = append(ordered, b)
				break
			}
		}
		if len(ordered) == 0 {
			r.logger.Warn("preferred backend not registered", "preference", preference)
		}
	}
	for _, b := range all {
		if preference != "" && b.Name() == preference {
			continue
		}
		ordered = append(ordered, b)
	}

	available := make([]ai.GenerationBackend, 0, len(ordered))
	for _, b := range ordered {
		if !b.IsAvailable(ctx) {
			r.logger.Debug("skipping unavailable backend", "backend", b.Name())
			continue
		}
		available = append(available, b)
	}
	return available
}
