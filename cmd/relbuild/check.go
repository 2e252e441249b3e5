package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/config"
	"github.com/b-harvest/relbuild/internal/di"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/source"
	"github.com/b-harvest/relbuild/internal/output"
)

// Report formats accepted by check --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	var (
		only   []string
		format string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the validation gate",
		Long: `Check runs every validation check against a snapshot of the sources:

  build          the project compiles for the resolved triple
  lint           clippy reports no warnings (-D warnings)
  format         rustfmt reports no differences
  config-format  every TOML file is in canonical layout

The build and lint checks compile for the same triple a release would
use: --triple/--platform, then COMPILER_TRIPLE, then the default
x86_64-unknown-linux-gnu. Gating one triple does not vouch for another.

Checks run concurrently and never stop each other; the verdict is
releasable only when all of them pass. The release directory is never
touched. Exits non-zero unless the verdict is releasable.

Examples:
  relbuild check
  relbuild check --only lint,format
  relbuild check --format yaml
  relbuild check --watch --only lint`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runCheckWatch(cmd, only, format)
			}
			return runCheck(cmd, only, format)
		},
	}

	addTargetFlags(cmd)
	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only these checks ("+checkNames()+")")
	cmd.Flags().IntVarP(&cfg.Jobs.Value, config.FlagJobs, "j", cfg.Jobs.Value, "Concurrent checks (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Report format: table, json or yaml")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run the checks whenever a source file changes")

	_ = cmd.RegisterFlagCompletionFunc("only", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return strings.Split(checkNames(), ","), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatJSON, formatYAML}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runCheck(cmd *cobra.Command, only []string, format string) error {
	if cfg.JSON.Value && !cmd.Flags().Changed("format") {
		format = formatJSON
	}
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return handleCommandError(cmd, fmt.Errorf("unsupported format %q (use table, json or yaml)", format))
	}

	selected, err := parseCheckNames(only)
	if err != nil {
		return handleCommandError(cmd, err)
	}

	runCfg, err := pipelineConfig()
	if err != nil {
		return handleCommandError(cmd, err)
	}
	runCfg.Only = selected

	logger := output.DefaultLogger
	if format != formatTable {
		// structured output owns stdout
		logger.SetJSONMode(true)
	}
	reporter := newStageReporter(2, logger)
	container := newContainer(di.WithProgress(reporter))

	report, err := container.Pipeline().Validate(cmd.Context(), runCfg)
	if err != nil {
		return handleCommandError(cmd, err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		if err := writeJSON(out, report); err != nil {
			return err
		}
	case formatYAML:
		if err := yaml.NewEncoder(out).Encode(report); err != nil {
			return err
		}
	default:
		printReportTable(out, report)
	}

	if !report.Releasable {
		if format == formatTable {
			return handleCommandError(cmd, &release.GateBlockedError{Failed: report.Failed()})
		}
		cmd.SilenceErrors = true
		return errAlreadyReported
	}
	return nil
}

// runCheckWatch runs the gate once, then again after every change to a file
// the snapshot would retain, until interrupted.
func runCheckWatch(cmd *cobra.Command, only []string, format string) error {
	if format != formatTable || cfg.JSON.Value {
		return handleCommandError(cmd, fmt.Errorf("--watch only supports table output"))
	}
	runCfg, err := pipelineConfig()
	if err != nil {
		return handleCommandError(cmd, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	logger := output.DefaultLogger
	watcher, err := source.NewWatcher(ports.SnapshotOptions{
		SourceDir: runCfg.SourceDir,
		Include:   runCfg.Include,
		Exclude:   []string{runCfg.OutputDir, runCfg.HomeDir},
	}, source.DefaultDebounce, logger)
	if err != nil {
		return handleCommandError(cmd, err)
	}

	// failures are printed by runCheck and must not end the session
	_ = runCheck(cmd, only, format)
	logger.Info("Watching %s for changes (Ctrl+C to stop)", runCfg.SourceDir)

	err = watcher.Watch(ctx, func(changed []string) {
		logger.Println("")
		logger.Info("Changed: %s", strings.Join(changed, ", "))
		_ = runCheck(cmd, only, format)
		logger.Info("Watching %s for changes (Ctrl+C to stop)", runCfg.SourceDir)
	})
	if err != nil {
		return handleCommandError(cmd, err)
	}
	return nil
}

func parseCheckNames(names []string) ([]release.CheckName, error) {
	var out []release.CheckName
	for _, n := range names {
		name, ok := release.ParseCheckName(strings.TrimSpace(n))
		if !ok {
			return nil, fmt.Errorf("unknown check %q (known: %s)", n, checkNames())
		}
		out = append(out, name)
	}
	return out, nil
}

func checkNames() string {
	names := make([]string, len(release.AllChecks))
	for i, n := range release.AllChecks {
		names[i] = string(n)
	}
	return strings.Join(names, ",")
}

// printReportTable renders one row per check followed by the verdict and
// the diagnostics of every failed check.
func printReportTable(w io.Writer, report *dto.CheckReport) {
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tDURATION")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, output.PassFail(r.Passed()), r.Duration.Round(time.Millisecond))
	}
	tw.Flush()

	for _, r := range report.Results {
		if r.Passed() || r.Details == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s\n", output.Separator(), r.Name)
		fmt.Fprintln(w, strings.TrimRight(r.Details, "\n"))
	}

	fmt.Fprintln(w)
	if report.Releasable {
		fmt.Fprintf(w, "Verdict: releasable (%s)\n", report.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "Verdict: not releasable (%s)\n", report.Duration.Round(time.Millisecond))
	}
}
