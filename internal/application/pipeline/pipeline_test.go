package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/application/build"
	"github.com/b-harvest/relbuild/internal/application/gate"
	"github.com/b-harvest/relbuild/internal/application/ports"
	relpkg "github.com/b-harvest/relbuild/internal/application/release"
	"github.com/b-harvest/relbuild/internal/domain/common"
	"github.com/b-harvest/relbuild/internal/domain/platform"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/cache"
	"github.com/b-harvest/relbuild/internal/infrastructure/filesystem"
	"github.com/b-harvest/relbuild/internal/infrastructure/manifest"
	"github.com/b-harvest/relbuild/internal/infrastructure/source"
	"github.com/b-harvest/relbuild/internal/infrastructure/tomlutil"
	"github.com/b-harvest/relbuild/internal/output"
	"github.com/b-harvest/relbuild/internal/paths"
)

// fakeCargo lays out outputs the way cargo does: dependencies under
// <target>/<triple>/release/deps and the binary next to them.
type fakeCargo struct {
	mu        sync.Mutex
	depsCalls int

	BuildDependenciesFunc func(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error)
	BuildProjectFunc      func(ctx context.Context, req ports.CompileRequest, name string) (*ports.CompileOutput, error)
	LintFunc              func(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error)
}

func (f *fakeCargo) BuildDependencies(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
	f.mu.Lock()
	f.depsCalls++
	f.mu.Unlock()
	if f.BuildDependenciesFunc != nil {
		return f.BuildDependenciesFunc(ctx, req)
	}
	dir := filepath.Join(req.TargetDir, req.Triple, "release", "deps")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ports.CompileOutput{}, os.WriteFile(filepath.Join(dir, "libclap.rlib"), []byte("rlib"), 0o644)
}

func (f *fakeCargo) BuildProject(ctx context.Context, req ports.CompileRequest, name string) (*ports.CompileOutput, error) {
	if f.BuildProjectFunc != nil {
		return f.BuildProjectFunc(ctx, req, name)
	}
	if _, err := os.Stat(filepath.Join(req.TargetDir, req.Triple, "release", "deps", "libclap.rlib")); err != nil {
		return nil, &release.SourceCompileError{Triple: req.Triple, Diagnostics: "dependencies missing"}
	}
	bin := filepath.Join(req.TargetDir, req.Triple, "release", name)
	if err := os.WriteFile(bin, []byte("binary:"+req.Triple), 0o755); err != nil {
		return nil, err
	}
	return &ports.CompileOutput{BinaryPath: bin}, nil
}

func (f *fakeCargo) Lint(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
	if f.LintFunc != nil {
		return f.LintFunc(ctx, req)
	}
	return &ports.CompileOutput{}, nil
}

func (f *fakeCargo) CheckFormat(context.Context, string) (*ports.CompileOutput, error) {
	return &ports.CompileOutput{}, nil
}

const (
	cargoToml = "[package]\nname = \"gh-jj\"\nversion = \"0.3.1\"\nedition = \"2021\"\n"
	cargoLock = "version = 3\n\n[[package]]\nname = \"gh-jj\"\nversion = \"0.3.1\"\n"
)

type fixture struct {
	pipeline *Pipeline
	cargo    *fakeCargo
	cfg      Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := t.TempDir()
	for rel, content := range map[string]string{
		"Cargo.toml":  cargoToml,
		"Cargo.lock":  cargoLock,
		"src/main.rs": "fn main() {}\n",
		"README.md":   "# gh-jj\n",
	} {
		p := filepath.Join(src, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	home := t.TempDir()
	logger := output.NewLoggerWithWriters(io.Discard, io.Discard)
	fsys := filesystem.NewOSFileSystem()
	graph := manifest.NewInspector()
	cargo := &fakeCargo{}

	store := cache.NewDependencyStore(paths.DepsCachePath(home), logger)
	deps := build.NewBuildDependenciesUseCase(cargo, store, graph, logger)
	project := build.NewBuildProjectUseCase(cargo, graph, fsys, logger)
	validator := gate.NewValidateUseCase(deps, gate.DefaultChecks(project, cargo, fsys, tomlutil.NewChecker()), logger)
	packager := relpkg.NewPackageUseCase(fsys, logger)

	return &fixture{
		pipeline: New(source.NewSnapshotter(logger), deps, project, validator, packager, fsys, logger),
		cargo:    cargo,
		cfg: Config{
			HomeDir:   home,
			SourceDir: src,
			OutputDir: filepath.Join(src, "release"),
			Request:   platform.Default(),
		},
	}
}

func releaseDirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRelease_DefaultPlatform(t *testing.T) {
	f := newFixture(t)
	f.cfg.Request = platform.Resolve("", "")

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)

	want := filepath.Join(f.cfg.OutputDir, "gh-jj-linux-amd64")
	assert.Equal(t, want, res.Artifact.Path)
	assert.Equal(t, []string{"gh-jj-linux-amd64"}, releaseDirEntries(t, f.cfg.OutputDir))

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "binary:x86_64-unknown-linux-gnu", string(data))

	assert.NotEmpty(t, res.RunID)
	assert.NoDirExists(t, paths.RunPath(f.cfg.HomeDir, res.RunID), "work directory removed")
}

func TestRelease_Aarch64Override(t *testing.T) {
	f := newFixture(t)
	f.cfg.Request = platform.Resolve("aarch64-unknown-linux-gnu", "linux-arm64")

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.cfg.OutputDir, "gh-jj-linux-arm64"), res.Artifact.Path)
	assert.Equal(t, "aarch64-unknown-linux-gnu", res.Deps.Triple)
	data, err := os.ReadFile(res.Artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "binary:aarch64-unknown-linux-gnu", string(data))
}

func TestRelease_SecondRunReusesDependencies(t *testing.T) {
	f := newFixture(t)

	first, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	second, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)

	assert.False(t, first.Deps.FromCache)
	assert.True(t, second.Deps.FromCache)
	assert.Equal(t, 1, f.cargo.depsCalls)
	assert.NotEqual(t, first.RunID, second.RunID)

	f.cfg.NoCache = true
	_, err = f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, f.cargo.depsCalls)
}

func TestRelease_PlatformPolicy(t *testing.T) {
	f := newFixture(t)
	f.cfg.Request = platform.Resolve("aarch64-unknown-linux-gnu", "")

	// Overrides are independent: the tag keeps its default.
	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, "gh-jj-linux-amd64", filepath.Base(res.Artifact.Path))

	f.cfg.StrictPlatform = true
	require.NoError(t, os.RemoveAll(f.cfg.OutputDir))
	_, err = f.pipeline.Release(context.Background(), f.cfg)
	var mismatch *release.PlatformMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Empty(t, releaseDirEntries(t, f.cfg.OutputDir))
}

func TestRelease_GateIsOptIn(t *testing.T) {
	f := newFixture(t)
	f.cargo.LintFunc = func(context.Context, ports.CompileRequest) (*ports.CompileOutput, error) {
		return nil, &release.LintViolationError{Violations: 1}
	}

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err, "packaging does not consult the gate by default")
	assert.FileExists(t, res.Artifact.Path)
	require.NoError(t, os.RemoveAll(f.cfg.OutputDir))

	f.cfg.RequireChecks = true
	res, err = f.pipeline.Release(context.Background(), f.cfg)
	var blocked *release.GateBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, []release.CheckName{release.CheckLint}, blocked.Failed)
	require.NotNil(t, res)
	assert.False(t, res.Report.Releasable)
	assert.Empty(t, releaseDirEntries(t, f.cfg.OutputDir))
}

func TestRelease_RequiredChecksPass(t *testing.T) {
	f := newFixture(t)
	f.cfg.RequireChecks = true

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Releasable)
	assert.Len(t, res.Report.Results, 4)
	assert.Equal(t, 1, f.cargo.depsCalls, "release reuses the artifact built for the checks")
}

func TestRelease_CompileErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.cargo.BuildProjectFunc = func(_ context.Context, req ports.CompileRequest, _ string) (*ports.CompileOutput, error) {
		return nil, &release.SourceCompileError{Triple: req.Triple, Diagnostics: "error[E0425]"}
	}

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	assert.Nil(t, res)
	var compileErr *release.SourceCompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Empty(t, releaseDirEntries(t, f.cfg.OutputDir))
}

func TestRelease_LockDriftAborts(t *testing.T) {
	f := newFixture(t)
	drifted := "version = 3\n\n[[package]]\nname = \"gh-jj\"\nversion = \"0.3.0\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.SourceDir, "Cargo.lock"), []byte(drifted), 0o644))

	_, err := f.pipeline.Release(context.Background(), f.cfg)
	var lockErr *release.LockMismatchError
	require.True(t, errors.As(err, &lockErr))
	assert.Empty(t, releaseDirEntries(t, f.cfg.OutputDir))
}

func TestRelease_ExternalLockDriftIsProjectError(t *testing.T) {
	f := newFixture(t)
	manifestWithClap := cargoToml + "\n[dependencies]\nclap = \"4.5\"\n"
	lockWithOldClap := cargoLock + "dependencies = [\"clap\"]\n\n[[package]]\nname = \"clap\"\nversion = \"3.2.0\"\n" +
		"source = \"registry+https://github.com/rust-lang/crates.io-index\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.SourceDir, "Cargo.toml"), []byte(manifestWithClap), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.SourceDir, "Cargo.lock"), []byte(lockWithOldClap), 0o644))
	// cargo refuses to touch a drifted lock under --locked
	f.cargo.BuildDependenciesFunc = func(_ context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
		return nil, &release.DependencyBuildError{
			Triple: req.Triple,
			Err:    &release.LockMismatchError{Diagnostics: "the lock file needs to be updated but --locked was passed"},
		}
	}

	_, err := f.pipeline.Release(context.Background(), f.cfg)

	var lockErr *release.LockMismatchError
	require.True(t, errors.As(err, &lockErr))
	require.Len(t, lockErr.Drifts, 1)
	assert.Equal(t, "clap", lockErr.Drifts[0].Name)
	var depErr *release.DependencyBuildError
	assert.False(t, errors.As(err, &depErr))
	assert.Equal(t, release.ComponentProject, common.GetComponent(err))
	assert.Equal(t, 0, f.cargo.depsCalls)
	assert.Empty(t, releaseDirEntries(t, f.cfg.OutputDir))
}

func TestRelease_KeepWork(t *testing.T) {
	f := newFixture(t)
	f.cfg.KeepWork = true

	res, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(paths.RunSourcePath(f.cfg.HomeDir, res.RunID), "Cargo.toml"))
	assert.NoFileExists(t, filepath.Join(paths.RunSourcePath(f.cfg.HomeDir, res.RunID), "README.md"))
}

func TestRelease_ReportsStages(t *testing.T) {
	f := newFixture(t)
	var steps []string
	f.pipeline.WithProgress(ports.ProgressFunc(func(step ports.StepProgress) {
		if step.Status == ports.StepRunning {
			steps = append(steps, step.Name)
		}
	}))

	_, err := f.pipeline.Release(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{StepSnapshot, StepDeps, StepProject, StepPackage}, steps)
}

func TestValidate_NeverTouchesReleaseDir(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Validate(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.True(t, report.Releasable)
	assert.NoDirExists(t, f.cfg.OutputDir)
	assert.NoDirExists(t, paths.RunPath(f.cfg.HomeDir, report.RunID))
}
