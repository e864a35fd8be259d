package redis

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/gmp/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Registry implements ports.HandlerRegistry on a Redis SET, shared by every
// process using the same prefix.
type Registry struct {
	client *backend.Client
	prefix string
}

// NewRegistry creates a Registry over client.
func NewRegistry(client *backend.Client, opts ...Option) *Registry {
	o := newOptions(opts)
	return &Registry{client: client, prefix: o.prefix}
}

// ApplyHandlers returns the registered paths, sorted.
func (r *Registry) ApplyHandlers(ctx context.Context) ([]domain.ConfigPath, error) {
	members, err := r.client.SMembers(ctx, handlersKey(r.prefix)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read apply handlers: %w", err)
	}

	paths := make([]domain.ConfigPath, 0, len(members))
	for _, m := range members {
		p, err := domain.ParseConfigPath(m)
		if err != nil {
			return nil, fmt.Errorf("invalid handler registered: %w", err)
		}
		paths = append(paths, p)
	}
	slices.SortFunc(paths, domain.ConfigPath.Compare)
	return paths, nil
}

// Register adds path.
func (r *Registry) Register(ctx context.Context, path domain.ConfigPath) error {
	if err := r.client.SAdd(ctx, handlersKey(r.prefix), path.String()).Err(); err != nil {
		return fmt.Errorf("failed to register handler %s: %w", path, err)
	}
	return nil
}

// Unregister removes path.
func (r *Registry) Unregister(ctx context.Context, path domain.ConfigPath) error {
	if err := r.client.SRem(ctx, handlersKey(r.prefix), path.String()).Err(); err != nil {
		return fmt.Errorf("failed to unregister handler %s: %w", path, err)
	}
	return nil
}
