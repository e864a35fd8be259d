package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/gmp/pkg/domain"
)

// Registry implements ports.HandlerRegistry in memory.
// Safe for concurrent use.
type Registry struct {
	paths map[domain.ConfigPath]struct{}
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding paths.
func NewRegistry(paths ...domain.ConfigPath) *Registry {
	r := &Registry{paths: make(map[domain.ConfigPath]struct{})}
	for _, p := range paths {
		r.paths[p] = struct{}{}
	}
	return r
}

// ApplyHandlers returns a sorted copy of the registered paths.
func (r *Registry) ApplyHandlers(ctx context.Context) ([]domain.ConfigPath, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]domain.ConfigPath, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, domain.ConfigPath.Compare)
	return paths, nil
}

// Register adds path.
func (r *Registry) Register(ctx context.Context, path domain.ConfigPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path] = struct{}{}
	return nil
}

// Unregister removes path.
func (r *Registry) Unregister(ctx context.Context, path domain.ConfigPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
	return nil
}
