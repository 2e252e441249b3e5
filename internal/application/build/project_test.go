package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/filesystem"
)

func buildDeps(t *testing.T, tc *fakeToolchain, inputs release.CommonBuildInputs, tr string) *release.DependencyCacheArtifact {
	t.Helper()
	uc := NewBuildDependenciesUseCase(tc, testStore(t), &fakeGraph{fingerprint: "fp"}, discardLogger())
	art, err := uc.Execute(context.Background(), dto.DependencyBuildInput{Inputs: inputs, Triple: tr})
	require.NoError(t, err)
	return art
}

func TestBuildProject_CompilesOnTopOfDependencies(t *testing.T) {
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	deps := buildDeps(t, tc, inputs, triple)
	uc := NewBuildProjectUseCase(tc, &fakeGraph{}, filesystem.NewOSFileSystem(), discardLogger())
	work := t.TempDir()

	bin, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: deps, WorkDir: work})
	require.NoError(t, err)

	assert.Equal(t, triple, bin.Triple)
	assert.Equal(t, filepath.Join(work, "target", triple, "release", release.BinaryBaseName), bin.Path)
	assert.Equal(t, int64(len("binary:"+triple)), bin.Size)

	assert.FileExists(t, filepath.Join(work, "target", triple, "release", "deps", depsMarker), "target dir seeded from cache")
	assert.NoFileExists(t, filepath.Join(deps.TargetDir, triple, "release", release.BinaryBaseName), "cache entry untouched")
	assert.Equal(t, inputs.SourceDir(), tc.lastProject.SourceDir)
}

func TestBuildProject_AlwaysLocked(t *testing.T) {
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	deps := buildDeps(t, tc, inputs, triple)
	inputs.StrictDependencyMode = false
	uc := NewBuildProjectUseCase(tc, &fakeGraph{}, filesystem.NewOSFileSystem(), discardLogger())

	_, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: deps, WorkDir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, tc.lastProject.Locked)
}

func TestBuildProject_FailsClosedOnTripleMismatch(t *testing.T) {
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	armDeps := buildDeps(t, tc, inputs, "aarch64-unknown-linux-gnu")
	uc := NewBuildProjectUseCase(tc, &fakeGraph{}, filesystem.NewOSFileSystem(), discardLogger())

	tests := []struct {
		name     string
		deps     *release.DependencyCacheArtifact
		artifact string
	}{
		{"foreign triple", armDeps, "aarch64-unknown-linux-gnu"},
		{"missing artifact", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: tt.deps, WorkDir: t.TempDir()})

			var mismatch *release.TripleMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, triple, mismatch.Requested)
			assert.Equal(t, tt.artifact, mismatch.Artifact)
		})
	}
	assert.Equal(t, 0, tc.projectCalls)
}

func TestBuildProject_LockDrift(t *testing.T) {
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	deps := buildDeps(t, tc, inputs, triple)
	drift := &release.LockMismatchError{Drifts: []release.LockDrift{{Name: "clap", Declared: "4.6", Locked: "4.5.4"}}}
	uc := NewBuildProjectUseCase(tc, &fakeGraph{lockErr: drift}, filesystem.NewOSFileSystem(), discardLogger())

	_, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: deps, WorkDir: t.TempDir()})

	var lockErr *release.LockMismatchError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, "clap", lockErr.Drifts[0].Name)
	assert.Equal(t, 0, tc.projectCalls, "nothing is compiled with a drifted lockfile")
}

func TestBuildProject_CompileErrors(t *testing.T) {
	const diag = "error[E0308]: mismatched types\n --> src/main.rs:4:9\n"
	inputs := testInputs(t)

	tests := []struct {
		name  string
		build func(context.Context, ports.CompileRequest, string) (*ports.CompileOutput, error)
		check func(t *testing.T, err error)
	}{
		{
			name: "diagnostics verbatim",
			build: func(context.Context, ports.CompileRequest, string) (*ports.CompileOutput, error) {
				return nil, &release.SourceCompileError{Triple: triple, Diagnostics: diag}
			},
			check: func(t *testing.T, err error) {
				var compileErr *release.SourceCompileError
				require.True(t, errors.As(err, &compileErr))
				assert.Equal(t, diag, compileErr.Diagnostics)
			},
		},
		{
			name: "compiler not started",
			build: func(context.Context, ports.CompileRequest, string) (*ports.CompileOutput, error) {
				return nil, errors.New("exec: \"cargo\": executable file not found in $PATH")
			},
			check: func(t *testing.T, err error) {
				var compileErr *release.SourceCompileError
				require.True(t, errors.As(err, &compileErr))
				assert.Contains(t, err.Error(), "executable file not found")
			},
		},
		{
			name: "binary missing",
			build: func(_ context.Context, req ports.CompileRequest, name string) (*ports.CompileOutput, error) {
				return &ports.CompileOutput{BinaryPath: filepath.Join(req.TargetDir, "nope", name)}, nil
			},
			check: func(t *testing.T, err error) {
				var compileErr *release.SourceCompileError
				require.True(t, errors.As(err, &compileErr))
				assert.Contains(t, err.Error(), "was not produced")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &fakeToolchain{}
			deps := buildDeps(t, tc, inputs, triple)
			tc.BuildProjectFunc = tt.build
			uc := NewBuildProjectUseCase(tc, &fakeGraph{}, filesystem.NewOSFileSystem(), discardLogger())

			bin, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: deps, WorkDir: t.TempDir()})
			assert.Nil(t, bin)
			tt.check(t, err)
		})
	}
}

func TestBuildProject_ResetsStaleTarget(t *testing.T) {
	tc := &fakeToolchain{}
	inputs := testInputs(t)
	deps := buildDeps(t, tc, inputs, triple)
	work := t.TempDir()
	stale := filepath.Join(work, "target", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	uc := NewBuildProjectUseCase(tc, &fakeGraph{}, filesystem.NewOSFileSystem(), discardLogger())

	_, err := uc.Execute(context.Background(), dto.ProjectBuildInput{Inputs: inputs, Triple: triple, Deps: deps, WorkDir: work})
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}
