package domain_test

import (
	"testing"

	"github.com/aretw0/gmp/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func path(s string) domain.ConfigPath { return domain.MustParseConfigPath(s) }

func sampleConfiguration() domain.Configuration {
	return domain.NewConfigurationBuilder().
		WithPath(path("X:S1:A.val1"), "xa1").
		WithPath(path("X:S1:A.val2"), "xa2").
		WithPath(path("X:S1.A.val2"), "xa2").
		WithPath(path("X:S1:B.val1"), "xb1").
		WithPath(path("X:S2:C.val1"), "xc1").
		Build()
}

func TestConfiguration_Basics(t *testing.T) {
	c := sampleConfiguration()
	assert.False(t, c.IsEmpty())
	assert.Equal(t, 5, c.Len())

	v, ok := c.Value(path("X:S2:C.val1"))
	assert.True(t, ok)
	assert.Equal(t, "xc1", v)

	_, ok = c.Value(path("X:S2"))
	assert.False(t, ok)

	assert.Equal(t, path("X:S1:A.val1"), c.Keys()[0], "keys keep insertion order")
	assert.True(t, domain.EmptyConfiguration.IsEmpty())
}

func TestConfiguration_DuplicatePathReplacesValue(t *testing.T) {
	c := domain.NewConfigurationBuilder().
		WithPath(path("X:S1"), "one").
		WithPath(path("X:S2"), "two").
		WithPath(path("X:S1"), "three").
		Build()

	assert.Equal(t, 2, c.Len())
	v, _ := c.Value(path("X:S1"))
	assert.Equal(t, "three", v)
	assert.Equal(t, []domain.ConfigPath{path("X:S1"), path("X:S2")}, c.Keys())
}

func TestConfiguration_SubConfiguration(t *testing.T) {
	c := sampleConfiguration()

	s1 := c.SubConfiguration(path("X:S1"))
	assert.Equal(t, 4, s1.Len())
	_, ok := s1.Value(path("X:S1.A.val2"))
	assert.True(t, ok, "prefix is not stripped")

	assert.True(t, c.SubConfiguration(path("X:S3")).IsEmpty())
	assert.True(t, c.SubConfiguration(path("X:S")).IsEmpty(), "text prefix is not a path prefix")
	assert.True(t, c.SubConfiguration(domain.EmptyPath).Equal(c))

	t.Run("Idempotent", func(t *testing.T) {
		for _, p := range []string{"X", "X:S1", "X:S1:A", "X:S2:C.val1", "Y"} {
			once := c.SubConfiguration(path(p))
			twice := once.SubConfiguration(path(p))
			assert.True(t, once.Equal(twice), p)
		}
	})
}

func TestConfiguration_EqualIgnoresOrder(t *testing.T) {
	a := domain.NewConfigurationBuilder().WithPath(path("A"), "1").WithPath(path("B"), "2").Build()
	b := domain.NewConfigurationBuilder().WithPath(path("B"), "2").WithPath(path("A"), "1").Build()
	c := domain.NewConfigurationBuilder().WithPath(path("B"), "3").WithPath(path("A"), "1").Build()
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "{A=1, B=2}", a.String())
}

func TestNewConfiguration(t *testing.T) {
	c, err := domain.NewConfiguration(map[string]string{
		"X:S2:C.val1": "xc1",
		"X:S1:A.val1": "xa1",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.ConfigPath{path("X:S1:A.val1"), path("X:S2:C.val1")}, c.Keys())
	assert.Equal(t, map[string]string{"X:S1:A.val1": "xa1", "X:S2:C.val1": "xc1"}, c.ToMap())

	_, err = domain.NewConfiguration(map[string]string{"X::A": "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfigPath)

	_, err = domain.NewConfiguration(map[string]string{"": "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfigPath)
}

func TestConfigPathNavigator_ChildPaths(t *testing.T) {
	nav := domain.NewConfigPathNavigator(sampleConfiguration())

	assert.Equal(t, []domain.ConfigPath{path("X")}, nav.ChildPaths(domain.EmptyPath))
	assert.Equal(t,
		[]domain.ConfigPath{path("X:S1"), path("X:S2")},
		nav.ChildPaths(path("X")),
		"X:S1.A.val2 lives under X:S1")
	assert.Equal(t,
		[]domain.ConfigPath{path("X:S1.A"), path("X:S1:A"), path("X:S1:B")},
		nav.ChildPaths(path("X:S1")))
	assert.Empty(t, nav.ChildPaths(path("X:S2:C.val1")))
	assert.Empty(t, nav.ChildPaths(path("Y")))
}
