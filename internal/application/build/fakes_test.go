package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/cache"
	"github.com/b-harvest/relbuild/internal/output"
)

const depsMarker = "libdeps.rlib"

// fakeToolchain records calls. Without overrides it writes a dependency
// marker and a binary the way cargo lays them out.
type fakeToolchain struct {
	mu           sync.Mutex
	depsCalls    int
	projectCalls int
	lastProject  ports.CompileRequest

	BuildDependenciesFunc func(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error)
	BuildProjectFunc      func(ctx context.Context, req ports.CompileRequest, name string) (*ports.CompileOutput, error)
}

func (f *fakeToolchain) BuildDependencies(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
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
	return &ports.CompileOutput{}, os.WriteFile(filepath.Join(dir, depsMarker), []byte(req.Triple), 0o644)
}

func (f *fakeToolchain) BuildProject(ctx context.Context, req ports.CompileRequest, name string) (*ports.CompileOutput, error) {
	f.mu.Lock()
	f.projectCalls++
	f.lastProject = req
	f.mu.Unlock()
	if f.BuildProjectFunc != nil {
		return f.BuildProjectFunc(ctx, req, name)
	}
	bin := filepath.Join(req.TargetDir, req.Triple, "release", name)
	if err := os.MkdirAll(filepath.Dir(bin), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(bin, []byte("binary:"+req.Triple), 0o755); err != nil {
		return nil, err
	}
	return &ports.CompileOutput{BinaryPath: bin}, nil
}

func (f *fakeToolchain) Lint(context.Context, ports.CompileRequest) (*ports.CompileOutput, error) {
	return &ports.CompileOutput{}, nil
}

func (f *fakeToolchain) CheckFormat(context.Context, string) (*ports.CompileOutput, error) {
	return &ports.CompileOutput{}, nil
}

type fakeGraph struct {
	fingerprint string
	lockErr     error
}

func (g *fakeGraph) Fingerprint(string) (string, error) { return g.fingerprint, nil }
func (g *fakeGraph) VerifyLocked(string) error          { return g.lockErr }

func discardLogger() *output.Logger {
	return output.NewLoggerWithWriters(io.Discard, io.Discard)
}

func testInputs(t *testing.T) release.CommonBuildInputs {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\nname = \"gh-jj\"\n"), 0o644))
	return release.NewCommonBuildInputs(&release.SourceSnapshot{Root: root})
}

func testStore(t *testing.T) *cache.DependencyStore {
	t.Helper()
	return cache.NewDependencyStore(filepath.Join(t.TempDir(), "deps"), discardLogger())
}
