// Package gate runs the validation checks that decide whether a snapshot is
// releasable.
package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// DependencyBuilder produces the dependency artifact shared by the checks.
type DependencyBuilder interface {
	Execute(ctx context.Context, input dto.DependencyBuildInput) (*release.DependencyCacheArtifact, error)
}

// ValidateUseCase runs every selected check to completion and reports the
// logical AND of their results. A failing check never stops the others.
type ValidateUseCase struct {
	deps     DependencyBuilder
	checks   []Check
	logger   ports.Logger
	progress ports.ProgressReporter
}

// NewValidateUseCase creates a new ValidateUseCase. checks are reported in
// the order given.
func NewValidateUseCase(deps DependencyBuilder, checks []Check, logger ports.Logger) *ValidateUseCase {
	return &ValidateUseCase{
		deps:     deps,
		checks:   checks,
		logger:   logger,
		progress: ports.NilProgressReporter,
	}
}

// WithProgress sets the reporter notified as checks start and finish.
func (uc *ValidateUseCase) WithProgress(progress ports.ProgressReporter) *ValidateUseCase {
	if progress == nil {
		progress = ports.NilProgressReporter
	}
	uc.progress = progress
	return uc
}

// Execute runs the gate. The returned error is non-nil only for invalid
// input; check failures are part of the report.
func (uc *ValidateUseCase) Execute(ctx context.Context, input dto.CheckInput) (*dto.CheckReport, error) {
	if input.Inputs.Snapshot == nil {
		return nil, errors.New("validation requires a source snapshot")
	}
	selected, err := uc.selectChecks(input.Only)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report := &dto.CheckReport{
		RunID:    input.RunID,
		Triple:   input.Triple,
		Snapshot: input.Inputs.Snapshot.ShortDigest(),
		Results:  make([]release.CheckResult, len(selected)),
	}

	var deps *release.DependencyCacheArtifact
	var depsErr error
	if needsDependencies(selected) {
		deps, depsErr = uc.deps.Execute(ctx, dto.DependencyBuildInput{
			Inputs: input.Inputs,
			Triple: input.Triple,
			RunID:  input.RunID,
		})
		if depsErr != nil {
			uc.logger.Warn("Dependency build failed; checks that compile will fail: %v", depsErr)
		}
	}

	var mu sync.Mutex
	notify := func(step ports.StepProgress) {
		mu.Lock()
		defer mu.Unlock()
		uc.progress.ReportStep(step)
	}

	var g errgroup.Group
	if input.Jobs > 0 {
		g.SetLimit(input.Jobs)
	}
	for i, check := range selected {
		i, check := i, check
		g.Go(func() error {
			name := string(check.Name())
			notify(ports.StepProgress{Name: name, Status: ports.StepRunning})

			result := uc.runCheck(ctx, check, Env{
				Inputs:  input.Inputs,
				Triple:  input.Triple,
				Deps:    deps,
				WorkDir: filepath.Join(input.WorkDir, name),
			}, depsErr)
			report.Results[i] = result

			if result.Passed() {
				notify(ports.StepProgress{Name: name, Status: ports.StepCompleted, Detail: result.Details})
			} else {
				notify(ports.StepProgress{Name: name, Status: ports.StepFailed, Error: result.Details})
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Releasable = true
	for _, r := range report.Results {
		report.Releasable = report.Releasable && r.Passed()
	}
	report.Duration = time.Since(started)
	return report, nil
}

func (uc *ValidateUseCase) runCheck(ctx context.Context, check Check, env Env, depsErr error) release.CheckResult {
	started := time.Now()
	var result release.CheckResult

	switch {
	case check.NeedsDependencies() && depsErr != nil:
		result = release.Fail(check.Name(), depsErr)
	default:
		if err := os.MkdirAll(env.WorkDir, 0o755); err != nil {
			result = release.Fail(check.Name(), fmt.Errorf("failed to create work directory: %w", err))
			break
		}
		details, err := check.Run(ctx, env)
		if err != nil {
			result = release.Fail(check.Name(), err)
		} else {
			result = release.Pass(check.Name(), details)
		}
	}

	result.Duration = time.Since(started)
	uc.logger.Debug("Check %s: %s in %s", result.Name, result.Status, result.Duration.Round(time.Millisecond))
	return result
}

func (uc *ValidateUseCase) selectChecks(only []release.CheckName) ([]Check, error) {
	if len(only) == 0 {
		return uc.checks, nil
	}
	want := make(map[release.CheckName]bool, len(only))
	for _, name := range only {
		want[name] = true
	}
	var selected []Check
	for _, c := range uc.checks {
		if want[c.Name()] {
			selected = append(selected, c)
			delete(want, c.Name())
		}
	}
	for _, name := range only {
		if want[name] {
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	return selected, nil
}

func needsDependencies(checks []Check) bool {
	for _, c := range checks {
		if c.NeedsDependencies() {
			return true
		}
	}
	return false
}
