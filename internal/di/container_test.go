package di

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracache "github.com/b-harvest/relbuild/internal/infrastructure/cache"
	"github.com/b-harvest/relbuild/internal/output"
)

func TestNew_WiresDefaults(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer
	c := New(
		WithLogger(output.NewLoggerWithWriters(&out, &out)),
		WithConfig(&Config{HomeDir: home, Verbose: true}),
	)

	store, ok := c.DependencyStore().(*infracache.DependencyStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, "cache", "deps"), store.Root())
	assert.True(t, c.Logger().IsVerbose())

	p := c.Pipeline()
	require.NotNil(t, p)
	assert.Same(t, p, c.Pipeline())
	assert.Same(t, c.BuildDependenciesUseCase(), c.BuildDependenciesUseCase())
	assert.NotNil(t, c.ValidateUseCase())
	assert.NotNil(t, c.PackageUseCase())
	assert.NotNil(t, c.CacheListUseCase())
	assert.NotNil(t, c.CacheInfoUseCase())
	assert.NotNil(t, c.CacheCleanUseCase())
}
