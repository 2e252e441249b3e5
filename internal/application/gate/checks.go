package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/output"
)

// Env is what every check receives. WorkDir is private to the check.
type Env struct {
	Inputs  release.CommonBuildInputs
	Triple  string
	Deps    *release.DependencyCacheArtifact
	WorkDir string
}

// Check is one validation check. Run returns a short summary on success and
// an error from the release taxonomy on failure.
type Check interface {
	Name() release.CheckName
	NeedsDependencies() bool
	Run(ctx context.Context, env Env) (string, error)
}

// ProjectBuilder compiles the project binary.
type ProjectBuilder interface {
	Execute(ctx context.Context, input dto.ProjectBuildInput) (*release.BinaryArtifact, error)
}

// BuildCheck verifies the project compiles on top of the dependency artifact.
type BuildCheck struct {
	project ProjectBuilder
}

func NewBuildCheck(project ProjectBuilder) *BuildCheck {
	return &BuildCheck{project: project}
}

func (c *BuildCheck) Name() release.CheckName { return release.CheckBuild }
func (c *BuildCheck) NeedsDependencies() bool { return true }

func (c *BuildCheck) Run(ctx context.Context, env Env) (string, error) {
	bin, err := c.project.Execute(ctx, dto.ProjectBuildInput{
		Inputs:  env.Inputs,
		Triple:  env.Triple,
		Deps:    env.Deps,
		WorkDir: env.WorkDir,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s built (%s)", filepath.Base(bin.Path), output.FormatBytes(bin.Size)), nil
}

// LintCheck runs the linter over every target with warnings denied.
type LintCheck struct {
	toolchain ports.Toolchain
	fs        ports.FileSystem
}

func NewLintCheck(toolchain ports.Toolchain, fs ports.FileSystem) *LintCheck {
	return &LintCheck{toolchain: toolchain, fs: fs}
}

func (c *LintCheck) Name() release.CheckName { return release.CheckLint }
func (c *LintCheck) NeedsDependencies() bool { return true }

func (c *LintCheck) Run(ctx context.Context, env Env) (string, error) {
	targetDir := filepath.Join(env.WorkDir, "target")
	if env.Deps != nil {
		if err := c.fs.CopyTree(env.Deps.TargetDir, targetDir); err != nil {
			return "", fmt.Errorf("failed to seed lint target directory: %w", err)
		}
	}
	if _, err := c.toolchain.Lint(ctx, ports.CompileRequest{
		SourceDir: env.Inputs.SourceDir(),
		TargetDir: targetDir,
		Triple:    env.Triple,
		Locked:    env.Inputs.StrictDependencyMode,
	}); err != nil {
		return "", err
	}
	return "no warnings", nil
}

// FormatCheck verifies source formatting.
type FormatCheck struct {
	toolchain ports.Toolchain
}

func NewFormatCheck(toolchain ports.Toolchain) *FormatCheck {
	return &FormatCheck{toolchain: toolchain}
}

func (c *FormatCheck) Name() release.CheckName { return release.CheckFormat }
func (c *FormatCheck) NeedsDependencies() bool { return false }

func (c *FormatCheck) Run(ctx context.Context, env Env) (string, error) {
	if _, err := c.toolchain.CheckFormat(ctx, env.Inputs.SourceDir()); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d source file(s) formatted", len(env.Inputs.Snapshot.FilesWithExt(".rs"))), nil
}

// ConfigFormatCheck verifies every TOML file of the snapshot.
type ConfigFormatCheck struct {
	checker ports.ConfigFormatChecker
}

func NewConfigFormatCheck(checker ports.ConfigFormatChecker) *ConfigFormatCheck {
	return &ConfigFormatCheck{checker: checker}
}

func (c *ConfigFormatCheck) Name() release.CheckName { return release.CheckConfigFormat }
func (c *ConfigFormatCheck) NeedsDependencies() bool { return false }

func (c *ConfigFormatCheck) Run(ctx context.Context, env Env) (string, error) {
	files := env.Inputs.Snapshot.FilesWithExt(".toml")

	var bad, messages []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(filepath.Join(env.Inputs.SourceDir(), filepath.FromSlash(f.Path)))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		if violations := c.checker.Check(f.Path, data); len(violations) > 0 {
			bad = append(bad, f.Path)
			messages = append(messages, violations...)
		}
	}

	if len(bad) > 0 {
		return "", &release.FormatViolationError{
			Kind:        release.FormatConfig,
			Files:       bad,
			Diagnostics: strings.Join(messages, "\n"),
		}
	}
	return fmt.Sprintf("%d TOML file(s) canonical", len(files)), nil
}

// DefaultChecks returns the four checks in report order.
func DefaultChecks(project ProjectBuilder, toolchain ports.Toolchain, fs ports.FileSystem, checker ports.ConfigFormatChecker) []Check {
	return []Check{
		NewBuildCheck(project),
		NewLintCheck(toolchain, fs),
		NewFormatCheck(toolchain),
		NewConfigFormatCheck(checker),
	}
}
