package ports

import (
	"context"

	"github.com/aretw0/gmp/pkg/domain"
)

// CommandHandlers exposes which configuration paths currently have an APPLY
// handler. The answer may change between calls; callers take one snapshot
// per dispatch.
type CommandHandlers interface {
	ApplyHandlers(ctx context.Context) ([]domain.ConfigPath, error)
}

// HandlerRegistry is a CommandHandlers whose content can be changed.
type HandlerRegistry interface {
	CommandHandlers

	// Register adds a handler path. Registering twice is a no-op.
	Register(ctx context.Context, path domain.ConfigPath) error

	// Unregister removes a handler path. Unknown paths are ignored.
	Unregister(ctx context.Context, path domain.ConfigPath) error
}
