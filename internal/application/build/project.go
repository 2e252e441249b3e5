package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// BuildProjectUseCase compiles the project binary on top of a dependency
// cache artifact. It always builds in release mode with a locked dependency
// graph.
type BuildProjectUseCase struct {
	toolchain ports.Toolchain
	graph     ports.DependencyGraph
	fs        ports.FileSystem
	logger    ports.Logger
}

// NewBuildProjectUseCase creates a new BuildProjectUseCase.
func NewBuildProjectUseCase(
	toolchain ports.Toolchain,
	graph ports.DependencyGraph,
	fs ports.FileSystem,
	logger ports.Logger,
) *BuildProjectUseCase {
	return &BuildProjectUseCase{
		toolchain: toolchain,
		graph:     graph,
		fs:        fs,
		logger:    logger,
	}
}

// Execute compiles the binary into input.WorkDir. The dependency artifact is
// copied, never modified.
func (uc *BuildProjectUseCase) Execute(ctx context.Context, input dto.ProjectBuildInput) (*release.BinaryArtifact, error) {
	if input.Deps == nil {
		return nil, &release.TripleMismatchError{Requested: input.Triple}
	}
	if input.Deps.Triple != input.Triple {
		return nil, &release.TripleMismatchError{Requested: input.Triple, Artifact: input.Deps.Triple}
	}

	sourceDir := input.Inputs.SourceDir()
	if sourceDir == "" {
		return nil, &release.SourceCompileError{Triple: input.Triple, Err: errors.New("no source snapshot")}
	}

	if err := uc.graph.VerifyLocked(sourceDir); err != nil {
		var lockErr *release.LockMismatchError
		if errors.As(err, &lockErr) {
			return nil, lockErr
		}
		return nil, &release.SourceCompileError{Triple: input.Triple, Err: err}
	}

	targetDir := filepath.Join(input.WorkDir, "target")
	if err := uc.fs.RemoveAll(targetDir); err != nil {
		return nil, fmt.Errorf("failed to reset target directory: %w", err)
	}
	if err := uc.fs.CopyTree(input.Deps.TargetDir, targetDir); err != nil {
		return nil, fmt.Errorf("failed to seed target directory from %s: %w", input.Deps.Key, err)
	}

	uc.logger.Info("Compiling %s for %s...", release.BinaryBaseName, input.Triple)
	out, err := uc.toolchain.BuildProject(ctx, ports.CompileRequest{
		SourceDir: sourceDir,
		TargetDir: targetDir,
		Triple:    input.Triple,
		Locked:    true,
	}, release.BinaryBaseName)
	if err != nil {
		return nil, asCompileError(err, input.Triple)
	}

	info, err := uc.fs.Stat(out.BinaryPath)
	if err != nil || info.IsDir() {
		return nil, &release.SourceCompileError{
			Triple: input.Triple,
			Err:    fmt.Errorf("compiler reported success but %s was not produced", out.BinaryPath),
		}
	}
	if out.Warnings > 0 {
		uc.logger.Warn("%s compiled with %d warning(s)", release.BinaryBaseName, out.Warnings)
	}

	return &release.BinaryArtifact{
		Path:   out.BinaryPath,
		Triple: input.Triple,
		Size:   info.Size(),
	}, nil
}

// asCompileError keeps toolchain errors from the taxonomy and wraps anything
// else, such as a compiler that could not be started.
func asCompileError(err error, triple string) error {
	var compileErr *release.SourceCompileError
	var lockErr *release.LockMismatchError
	if errors.As(err, &compileErr) || errors.As(err, &lockErr) {
		return err
	}
	return &release.SourceCompileError{Triple: triple, Err: err}
}
