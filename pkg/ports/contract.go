package ports

import (
	"context"
	"testing"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHandlerRegistryContract runs a suite of tests to verify that a
// HandlerRegistry implementation adheres to the defined interface contract.
// The registry must be empty when passed in.
func RunHandlerRegistryContract(t *testing.T, registry HandlerRegistry) {
	ctx := context.Background()
	s1 := domain.MustParseConfigPath("X:S1")
	s2 := domain.MustParseConfigPath("X:S2")

	t.Run("Empty", func(t *testing.T) {
		paths, err := registry.ApplyHandlers(ctx)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("Register", func(t *testing.T) {
		require.NoError(t, registry.Register(ctx, s1))
		require.NoError(t, registry.Register(ctx, s2))
		require.NoError(t, registry.Register(ctx, s1), "registering twice is a no-op")

		paths, err := registry.ApplyHandlers(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.ConfigPath{s1, s2}, paths)
	})

	t.Run("Snapshot", func(t *testing.T) {
		snapshot, err := registry.ApplyHandlers(ctx)
		require.NoError(t, err)

		require.NoError(t, registry.Register(ctx, domain.MustParseConfigPath("X:S3")))
		assert.Len(t, snapshot, 2, "earlier snapshots do not see later registrations")

		require.NoError(t, registry.Unregister(ctx, domain.MustParseConfigPath("X:S3")))
	})

	t.Run("Unregister", func(t *testing.T) {
		require.NoError(t, registry.Unregister(ctx, s1))
		require.NoError(t, registry.Unregister(ctx, domain.MustParseConfigPath("Y")), "unknown paths are ignored")

		paths, err := registry.ApplyHandlers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.ConfigPath{s2}, paths)
	})
}
