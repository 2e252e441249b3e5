// Package build contains the use cases that compile the project and manage
// the dependency cache.
package build

import (
	"context"
	"errors"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// BuildDependenciesUseCase produces the dependency cache artifact for one
// triple, reusing a stored entry when the dependency graph is unchanged.
type BuildDependenciesUseCase struct {
	toolchain ports.Toolchain
	store     ports.DependencyStore
	graph     ports.DependencyGraph
	logger    ports.Logger
}

// NewBuildDependenciesUseCase creates a new BuildDependenciesUseCase.
func NewBuildDependenciesUseCase(
	toolchain ports.Toolchain,
	store ports.DependencyStore,
	graph ports.DependencyGraph,
	logger ports.Logger,
) *BuildDependenciesUseCase {
	return &BuildDependenciesUseCase{
		toolchain: toolchain,
		store:     store,
		graph:     graph,
		logger:    logger,
	}
}

// Execute returns the artifact for input.Triple. In strict mode a lockfile
// that disagrees with the manifest is reported as the *release.LockMismatchError
// the project build would raise; every other failure is a
// *release.DependencyBuildError.
func (uc *BuildDependenciesUseCase) Execute(ctx context.Context, input dto.DependencyBuildInput) (*release.DependencyCacheArtifact, error) {
	sourceDir := input.Inputs.SourceDir()
	if sourceDir == "" {
		return nil, &release.DependencyBuildError{Triple: input.Triple, Err: errors.New("no source snapshot")}
	}

	if input.Inputs.StrictDependencyMode {
		if err := uc.graph.VerifyLocked(sourceDir); err != nil {
			var lockErr *release.LockMismatchError
			if errors.As(err, &lockErr) {
				return nil, lockErr
			}
			return nil, &release.DependencyBuildError{Triple: input.Triple, Err: err}
		}
	}

	fingerprint, err := uc.graph.Fingerprint(sourceDir)
	if err != nil {
		return nil, &release.DependencyBuildError{Triple: input.Triple, Err: err}
	}
	key := uc.store.Key(fingerprint, input.Triple)

	unlock, err := uc.store.Lock(ctx, key)
	if err != nil {
		return nil, &release.DependencyBuildError{Triple: input.Triple, Fingerprint: fingerprint, Err: err}
	}
	defer func() {
		if err := unlock(); err != nil {
			uc.logger.Warn("Failed to release cache lock %s: %v", key, err)
		}
	}()

	if !input.NoCache {
		if entry, ok := uc.store.Lookup(key); ok {
			uc.logger.Info("Reusing cached dependencies %s", key)
			return toArtifact(entry, true), nil
		}
	}

	staged, err := uc.store.Stage(key)
	if err != nil {
		return nil, &release.DependencyBuildError{Triple: input.Triple, Fingerprint: fingerprint, Err: err}
	}
	staged.Fingerprint = fingerprint
	staged.Triple = input.Triple
	staged.RunID = input.RunID

	uc.logger.Info("Compiling dependencies for %s...", input.Triple)
	out, err := uc.toolchain.BuildDependencies(ctx, ports.CompileRequest{
		SourceDir: sourceDir,
		TargetDir: staged.TargetDir,
		Triple:    input.Triple,
		Locked:    input.Inputs.StrictDependencyMode,
	})
	if err != nil {
		uc.store.Discard(staged)
		return nil, asDependencyError(err, input.Triple, fingerprint)
	}
	if out != nil && out.Warnings > 0 {
		uc.logger.Debug("Dependencies compiled with %d warning(s)", out.Warnings)
	}

	entry, err := uc.store.Commit(staged)
	if err != nil {
		uc.store.Discard(staged)
		return nil, &release.DependencyBuildError{Triple: input.Triple, Fingerprint: fingerprint, Err: err}
	}
	uc.logger.Success("Dependencies cached as %s", key)
	return toArtifact(entry, false), nil
}

func asDependencyError(err error, triple, fingerprint string) error {
	var lockErr *release.LockMismatchError
	if errors.As(err, &lockErr) {
		return lockErr
	}
	var depErr *release.DependencyBuildError
	if errors.As(err, &depErr) {
		if depErr.Fingerprint == "" {
			depErr.Fingerprint = fingerprint
		}
		return depErr
	}
	return &release.DependencyBuildError{Triple: triple, Fingerprint: fingerprint, Err: err}
}

func toArtifact(entry *ports.CacheEntry, fromCache bool) *release.DependencyCacheArtifact {
	return &release.DependencyCacheArtifact{
		Key:         entry.Key,
		Fingerprint: entry.Fingerprint,
		Triple:      entry.Triple,
		TargetDir:   entry.TargetDir,
		Size:        entry.Size,
		CreatedAt:   entry.CreatedAt,
		FromCache:   fromCache,
	}
}
