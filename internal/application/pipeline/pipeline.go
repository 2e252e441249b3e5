package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/gate"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/platform"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/paths"
)

// Step names reported to the progress reporter.
const (
	StepSnapshot = "Snapshotting sources"
	StepValidate = "Running validation checks"
	StepDeps     = "Building dependencies"
	StepProject  = "Building " + release.BinaryBaseName
	StepPackage  = "Packaging release"
)

// Validator runs the validation gate.
type Validator interface {
	Execute(ctx context.Context, input dto.CheckInput) (*dto.CheckReport, error)
}

// Packager places the binary in the release directory.
type Packager interface {
	Execute(ctx context.Context, input dto.PackageInput) (*release.ReleaseArtifact, error)
}

// Result describes a completed release run.
type Result struct {
	RunID    string                           `json:"run_id" yaml:"run_id"`
	Request  platform.Request                 `json:"request" yaml:"request"`
	Snapshot string                           `json:"snapshot" yaml:"snapshot"`
	Deps     *release.DependencyCacheArtifact `json:"dependencies" yaml:"dependencies"`
	Artifact *release.ReleaseArtifact         `json:"artifact" yaml:"artifact"`
	Report   *dto.CheckReport                 `json:"checks,omitempty" yaml:"checks,omitempty"`
	Duration time.Duration                    `json:"duration" yaml:"duration"`
}

// Pipeline orchestrates the release stages.
type Pipeline struct {
	snapshotter ports.Snapshotter
	deps        gate.DependencyBuilder
	project     gate.ProjectBuilder
	validator   Validator
	packager    Packager
	fs          ports.FileSystem
	logger      ports.Logger
	progress    ports.ProgressReporter
	newRunID    func() string
}

// New creates a Pipeline.
func New(
	snapshotter ports.Snapshotter,
	deps gate.DependencyBuilder,
	project gate.ProjectBuilder,
	validator Validator,
	packager Packager,
	fs ports.FileSystem,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		snapshotter: snapshotter,
		deps:        deps,
		project:     project,
		validator:   validator,
		packager:    packager,
		fs:          fs,
		logger:      logger,
		progress:    ports.NilProgressReporter,
		newRunID:    uuid.NewString,
	}
}

// WithProgress sets the reporter notified as stages start and finish.
func (p *Pipeline) WithProgress(progress ports.ProgressReporter) *Pipeline {
	if progress == nil {
		progress = ports.NilProgressReporter
	}
	p.progress = progress
	return p
}

// Release builds and packages one artifact. It stops at the first failing
// stage and returns that stage's error.
func (p *Pipeline) Release(ctx context.Context, cfg Config) (*Result, error) {
	started := time.Now()
	if err := p.checkPlatform(cfg); err != nil {
		return nil, err
	}

	runID := p.newRunID()
	defer p.cleanup(cfg, runID)
	result := &Result{RunID: runID, Request: cfg.Request}
	triple := cfg.Request.CompilerTriple

	inputs, err := p.snapshot(ctx, cfg, runID)
	if err != nil {
		return nil, err
	}
	result.Snapshot = inputs.Snapshot.ShortDigest()

	if cfg.RequireChecks {
		report, err := p.validate(ctx, cfg, runID, inputs)
		if err != nil {
			return nil, err
		}
		result.Report = report
		if !report.Releasable {
			err := &release.GateBlockedError{Failed: report.Failed()}
			p.fail(StepValidate, err)
			return result, err
		}
		p.done(StepValidate, "releasable")
	}

	p.start(StepDeps)
	deps, err := p.deps.Execute(ctx, dto.DependencyBuildInput{
		Inputs:  inputs,
		Triple:  triple,
		NoCache: cfg.NoCache,
		RunID:   runID,
	})
	if err != nil {
		p.fail(StepDeps, err)
		return nil, err
	}
	result.Deps = deps
	if deps.FromCache {
		p.done(StepDeps, "from cache")
	} else {
		p.done(StepDeps, "compiled")
	}

	p.start(StepProject)
	bin, err := p.project.Execute(ctx, dto.ProjectBuildInput{
		Inputs:  inputs,
		Triple:  triple,
		Deps:    deps,
		WorkDir: paths.RunBuildPath(cfg.HomeDir, runID, triple),
	})
	if err != nil {
		p.fail(StepProject, err)
		return nil, err
	}
	p.done(StepProject, triple)

	p.start(StepPackage)
	artifact, err := p.packager.Execute(ctx, dto.PackageInput{
		Binary:    *bin,
		Tag:       cfg.Request.ReleaseTag,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		p.fail(StepPackage, err)
		return nil, err
	}
	p.done(StepPackage, artifact.Path)

	result.Artifact = artifact
	result.Duration = time.Since(started)
	return result, nil
}

// Validate runs the validation gate against a fresh snapshot. It never
// writes to the release directory.
func (p *Pipeline) Validate(ctx context.Context, cfg Config) (*dto.CheckReport, error) {
	if err := p.checkPlatform(cfg); err != nil {
		return nil, err
	}

	runID := p.newRunID()
	defer p.cleanup(cfg, runID)

	inputs, err := p.snapshot(ctx, cfg, runID)
	if err != nil {
		return nil, err
	}
	report, err := p.validate(ctx, cfg, runID, inputs)
	if err != nil {
		return nil, err
	}
	if report.Releasable {
		p.done(StepValidate, "releasable")
	} else {
		p.fail(StepValidate, &release.GateBlockedError{Failed: report.Failed()})
	}
	return report, nil
}

// checkPlatform applies the consistency policy to the resolved request.
func (p *Pipeline) checkPlatform(cfg Config) error {
	req := cfg.Request
	if req.Consistent() {
		return nil
	}
	if cfg.StrictPlatform {
		return &release.PlatformMismatchError{Triple: req.CompilerTriple, Tag: req.ReleaseTag, Expected: req.Expected()}
	}
	p.logger.Warn("Compiler triple %s and release tag %s do not match (%s)", req.CompilerTriple, req.ReleaseTag, req.Expected())
	return nil
}

func (p *Pipeline) snapshot(ctx context.Context, cfg Config, runID string) (release.CommonBuildInputs, error) {
	p.start(StepSnapshot)
	snap, err := p.snapshotter.Snapshot(ctx, ports.SnapshotOptions{
		SourceDir:  cfg.SourceDir,
		StagingDir: paths.RunSourcePath(cfg.HomeDir, runID),
		Include:    cfg.Include,
		Exclude:    []string{cfg.OutputDir, cfg.HomeDir},
	})
	if err != nil {
		p.fail(StepSnapshot, err)
		return release.CommonBuildInputs{}, err
	}
	p.done(StepSnapshot, fmt.Sprintf("%d files, %s", len(snap.Files), snap.ShortDigest()))
	return release.NewCommonBuildInputs(snap), nil
}

func (p *Pipeline) validate(ctx context.Context, cfg Config, runID string, inputs release.CommonBuildInputs) (*dto.CheckReport, error) {
	p.start(StepValidate)
	report, err := p.validator.Execute(ctx, dto.CheckInput{
		Inputs:  inputs,
		Triple:  cfg.Request.CompilerTriple,
		Only:    cfg.Only,
		Jobs:    cfg.Jobs,
		RunID:   runID,
		WorkDir: paths.RunChecksPath(cfg.HomeDir, runID),
	})
	if err != nil {
		p.fail(StepValidate, err)
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) cleanup(cfg Config, runID string) {
	dir := paths.RunPath(cfg.HomeDir, runID)
	if cfg.KeepWork {
		p.logger.Info("Keeping work directory %s", dir)
		return
	}
	if err := p.fs.RemoveAll(dir); err != nil {
		p.logger.Warn("Failed to remove work directory %s: %v", dir, err)
	}
}

func (p *Pipeline) start(name string) {
	p.progress.ReportStep(ports.StepProgress{Name: name, Status: ports.StepRunning})
}

func (p *Pipeline) done(name, detail string) {
	p.progress.ReportStep(ports.StepProgress{Name: name, Status: ports.StepCompleted, Detail: detail})
}

func (p *Pipeline) fail(name string, err error) {
	p.progress.ReportStep(ports.StepProgress{Name: name, Status: ports.StepFailed, Error: err.Error()})
}
