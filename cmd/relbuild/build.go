package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/application/pipeline"
	"github.com/b-harvest/relbuild/internal/config"
	"github.com/b-harvest/relbuild/internal/di"
	"github.com/b-harvest/relbuild/internal/output"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var (
		noCache  bool
		keepWork bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and package a gh-jj release binary",
		Long: `Build compiles gh-jj in release mode and packages it as <output>/gh-jj-<tag>.

Stages:
  1. Snapshot the project sources
  2. Build (or reuse) the third-party dependencies for the compiler triple
  3. Build gh-jj against the lockfile on top of those dependencies
  4. Move the binary into the release directory

The compiler triple and release tag are resolved independently: each falls
back to its own default (x86_64-unknown-linux-gnu, linux-amd64) and an
override is used verbatim. Validation checks are not run unless
--require-checks is given.

Examples:
  # Default platform
  relbuild build

  # 64-bit ARM
  relbuild build --platform linux-arm64

  # Refuse to package unless every check passes
  relbuild build --require-checks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, noCache, keepWork)
		},
	}

	addTargetFlags(cmd)
	cmd.Flags().StringVarP(&cfg.OutputDir.Value, config.FlagOutput, "o", cfg.OutputDir.Value, "Release output directory")
	cmd.Flags().BoolVar(&cfg.RequireChecks.Value, config.FlagRequireChecks, false, "Run the validation gate and refuse to package when it fails")
	cmd.Flags().IntVarP(&cfg.Jobs.Value, config.FlagJobs, "j", cfg.Jobs.Value, "Concurrent validation checks with --require-checks (0 = unlimited)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Rebuild dependencies even when a cached build exists")
	cmd.Flags().BoolVar(&keepWork, "keep-work", false, "Keep the per-run scratch directory")

	return cmd
}

func runBuild(cmd *cobra.Command, noCache, keepWork bool) error {
	runCfg, err := pipelineConfig()
	if err != nil {
		return handleCommandError(cmd, err)
	}
	runCfg.NoCache = noCache
	runCfg.KeepWork = keepWork

	logger := output.DefaultLogger
	stages := 4
	if runCfg.RequireChecks {
		stages++
	}
	reporter := newStageReporter(stages, logger)
	container := newContainer(di.WithProgress(reporter))

	logger.Debug("Target: %s", runCfg.Request)
	result, err := container.Pipeline().Release(cmd.Context(), runCfg)
	if err != nil {
		if result != nil && result.Report != nil && !cfg.JSON.Value {
			printReportTable(cmd.OutOrStdout(), result.Report)
		}
		return handleCommandError(cmd, err)
	}

	if cfg.JSON.Value {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	reporter.progress.Done(fmt.Sprintf("Released %s", result.Artifact.Path))
	printBuildSummary(result)
	return nil
}

func printBuildSummary(result *pipeline.Result) {
	logger := output.DefaultLogger
	deps := "compiled"
	if result.Deps != nil && result.Deps.FromCache {
		deps = "reused from cache"
	}
	logger.Println("")
	logger.Println("  platform:     %s", result.Request.ReleaseTag)
	logger.Println("  triple:       %s", result.Request.CompilerTriple)
	logger.Println("  dependencies: %s", deps)
	logger.Println("  size:         %s", output.FormatBytes(result.Artifact.Size))
	logger.Println("  sha256:       %s", result.Artifact.SHA256)
	logger.Println("  duration:     %s", result.Duration.Round(time.Millisecond))
}
