// Package toolchain drives cargo as the compiler behind the release pipeline.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
	"github.com/b-harvest/relbuild/internal/infrastructure/manifest"
)

// DefaultCargo is the cargo executable looked up on PATH.
const DefaultCargo = "cargo"

// Cargo implements ports.Toolchain on top of the cargo command line.
type Cargo struct {
	exec   executor.CommandExecutor
	logger ports.Logger
	cargo  string
	env    []string
}

// NewCargo creates a cargo toolchain. An empty binary selects DefaultCargo.
// env is appended to every invocation.
func NewCargo(exec executor.CommandExecutor, logger ports.Logger, binary string, env ...string) *Cargo {
	if binary == "" {
		binary = DefaultCargo
	}
	return &Cargo{exec: exec, logger: logger, cargo: binary, env: env}
}

// BuildDependencies compiles the dependency graph only. The project's own
// crates are replaced by stubs so that source edits never invalidate the
// result, and their artifacts are cleaned afterwards so the real sources are
// always recompiled on top of it.
func (c *Cargo) BuildDependencies(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
	if err := os.MkdirAll(req.TargetDir, 0755); err != nil {
		return nil, &release.DependencyBuildError{Triple: req.Triple, Err: err}
	}
	stubDir, err := os.MkdirTemp(filepath.Dir(req.TargetDir), ".stub-")
	if err != nil {
		return nil, &release.DependencyBuildError{Triple: req.Triple, Err: err}
	}
	defer os.RemoveAll(stubDir)

	if err := writeStubTree(req.SourceDir, stubDir); err != nil {
		return nil, &release.DependencyBuildError{Triple: req.Triple, Err: fmt.Errorf("failed to prepare stub tree: %w", err)}
	}
	locals, err := localPackages(stubDir)
	if err != nil {
		return nil, &release.DependencyBuildError{Triple: req.Triple, Err: err}
	}

	stubReq := req
	stubReq.SourceDir = stubDir
	out := &ports.CompileOutput{}

	steps := [][]string{
		append([]string{"check", "--release", "--all-targets"}, targetArgs(req)...),
		append([]string{"build", "--release"}, targetArgs(req)...),
	}
	for _, args := range steps {
		res, err := c.run(ctx, stubReq, args)
		if err != nil {
			return nil, dependencyError(req, res, err)
		}
		out.Warnings += countWarnings(res.Stderr)
		out.Log += res.Stderr
	}

	for _, name := range locals {
		args := append([]string{"clean", "--release", "-p", name}, targetArgs(req)...)
		res, err := c.run(ctx, stubReq, args)
		if err != nil {
			return nil, dependencyError(req, res, err)
		}
	}
	return out, nil
}

// BuildProject compiles binaryName in release mode and returns its path.
func (c *Cargo) BuildProject(ctx context.Context, req ports.CompileRequest, binaryName string) (*ports.CompileOutput, error) {
	args := append([]string{"build", "--release", "--bin", binaryName}, targetArgs(req)...)
	res, err := c.run(ctx, req, args)
	if err != nil {
		return nil, compileError(req, res, err)
	}
	return &ports.CompileOutput{
		BinaryPath: BinaryPath(req.TargetDir, req.Triple, binaryName),
		Warnings:   countWarnings(res.Stderr),
		Log:        res.Stderr,
	}, nil
}

// Lint runs clippy over every target with warnings denied. It uses the
// release profile so that it shares dependency artifacts with the build.
func (c *Cargo) Lint(ctx context.Context, req ports.CompileRequest) (*ports.CompileOutput, error) {
	args := append([]string{"clippy", "--release", "--all-targets"}, targetArgs(req)...)
	args = append(args, "--", "-D", "warnings")
	res, err := c.run(ctx, req, args)
	if err != nil {
		return nil, lintError(res, err)
	}
	return &ports.CompileOutput{Log: res.Stderr}, nil
}

// CheckFormat runs rustfmt in check mode; no file is rewritten.
func (c *Cargo) CheckFormat(ctx context.Context, sourceDir string) (*ports.CompileOutput, error) {
	res, err := c.exec.Run(ctx, c.command(sourceDir, []string{"fmt", "--all", "--", "--check"}, nil))
	if err != nil {
		return nil, formatError(sourceDir, res, err)
	}
	return &ports.CompileOutput{Log: res.Stdout}, nil
}

func (c *Cargo) run(ctx context.Context, req ports.CompileRequest, args []string) (*executor.Result, error) {
	env := []string{"CARGO_TARGET_DIR=" + req.TargetDir}
	cmd := c.command(req.SourceDir, args, env)
	c.logger.Debug("Running %s (in %s)", cmd.String(), req.SourceDir)
	return c.exec.Run(ctx, cmd)
}

func (c *Cargo) command(dir string, args, env []string) executor.Command {
	env = append(append([]string{"CARGO_TERM_COLOR=never"}, env...), c.env...)
	var stream io.Writer
	if c.logger.IsVerbose() {
		stream = c.logger.ErrWriter()
	}
	return executor.Command{Name: c.cargo, Args: args, Dir: dir, Env: env, Stream: stream}
}

// BinaryPath is where cargo places a release binary for triple.
func BinaryPath(targetDir, triple, binaryName string) string {
	return filepath.Join(targetDir, triple, "release", binaryName)
}

func targetArgs(req ports.CompileRequest) []string {
	args := []string{"--target", req.Triple}
	if req.Locked {
		args = append(args, "--locked")
	}
	return args
}

// localPackages lists the packages defined by the project's own manifests.
func localPackages(root string) ([]string, error) {
	manifests, err := manifest.LoadManifests(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range manifests {
		if name, _, ok := m.Package(); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func stderrOf(res *executor.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}

// exited reports whether err means the tool ran and failed, as opposed to
// not starting at all.
func exited(err error) bool {
	var exitErr *executor.ExitError
	return errors.As(err, &exitErr)
}
