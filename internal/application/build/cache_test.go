package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/application/dto"
)

func TestCacheUseCases(t *testing.T) {
	store := testStore(t)
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	deps := NewBuildDependenciesUseCase(tc, store, &fakeGraph{fingerprint: "fp"}, discardLogger())

	amd, err := deps.Execute(context.Background(), dto.DependencyBuildInput{Inputs: inputs, Triple: triple, RunID: "r1"})
	require.NoError(t, err)
	arm, err := deps.Execute(context.Background(), dto.DependencyBuildInput{Inputs: inputs, Triple: "aarch64-unknown-linux-gnu"})
	require.NoError(t, err)

	list, err := NewCacheListUseCase(store, discardLogger()).Execute(context.Background(), dto.CacheListInput{Triple: triple})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, amd.Key, list.Entries[0].Key)
	assert.Equal(t, "r1", list.Entries[0].RunID)
	assert.Equal(t, amd.Size, list.TotalSize)

	info, err := NewCacheInfoUseCase(store).Execute(context.Background(), dto.CacheInfoInput{Key: arm.Key})
	require.NoError(t, err)
	assert.Equal(t, 2, info.TotalEntries)
	require.NotNil(t, info.Entry)
	assert.Equal(t, "aarch64-unknown-linux-gnu", info.Entry.Triple)

	_, err = NewCacheInfoUseCase(store).Execute(context.Background(), dto.CacheInfoInput{Key: "missing"})
	assert.Error(t, err)

	clean := NewCacheCleanUseCase(store, discardLogger())
	out, err := clean.Execute(context.Background(), dto.CacheCleanInput{Keys: []string{arm.Key, "missing"}})
	require.NoError(t, err)
	assert.Equal(t, []string{arm.Key}, out.Removed)
	assert.Equal(t, arm.Size, out.SpaceFreed)

	out, err = clean.Execute(context.Background(), dto.CacheCleanInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{amd.Key}, out.Removed)

	info, err = NewCacheInfoUseCase(store).Execute(context.Background(), dto.CacheInfoInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, info.TotalEntries)
	assert.Nil(t, info.Entry)
}
