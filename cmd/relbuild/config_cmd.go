package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/config"
	"github.com/b-harvest/relbuild/internal/infrastructure/tomlutil"
	"github.com/b-harvest/relbuild/internal/output"
)

// NewConfigCmd creates the config parent command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage relbuild configuration.

Configuration is layered, later layers winning:
  default < ~/.relbuild/config.toml < ./relbuild.toml < --config < environment < flag

Subcommands:
  show    Display the effective configuration with the source of each value
  init    Write a starter relbuild.toml
  fmt     Rewrite TOML files into the layout the config-format check expects`,
	}

	cmd.AddCommand(
		NewConfigShowCmd(),
		NewConfigInitCmd(),
		NewConfigFmtCmd(),
	)
	return cmd
}

// NewConfigShowCmd creates the config show subcommand.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if cfg.JSON.Value {
		return writeJSON(out, cfg.ToMap())
	}

	cfg.ToTable(out)
	if cfg.ConfigFilePath != "" {
		fmt.Fprintf(out, "\nConfig file: %s\n", cfg.ConfigFilePath)
	} else {
		fmt.Fprintln(out, "\nNo config file loaded")
	}
	if req, err := cfg.Request(); err == nil {
		fmt.Fprintf(out, "Target: %s\n", req)
	}
	return nil
}

// NewConfigInitCmd creates the config init subcommand.
func NewConfigInitCmd() *cobra.Command {
	var (
		dir         string
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter relbuild.toml",
		Long: `Write a starter relbuild.toml with every key documented.

With --interactive (the default on a terminal), prompts for the platform,
output directory, gate policy and check parallelism, using an existing
relbuild.toml as defaults.

Examples:
  relbuild config init
  relbuild config init --interactive=false --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interactive") {
				interactive = config.IsInteractive()
			}
			return runConfigInit(cmd, dir, force, interactive)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write relbuild.toml into")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing relbuild.toml")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for the main settings")

	return cmd
}

func runConfigInit(cmd *cobra.Command, dir string, force, interactive bool) error {
	setup := config.NewInteractiveSetup(dir)
	writer := setup.Writer()

	var fileCfg *config.FileConfig
	switch {
	case interactive:
		var err error
		fileCfg, err = setup.Run()
		if err != nil {
			return wrapInteractiveError(cmd, err)
		}
	case writer.Exists() && !force:
		return handleCommandError(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", writer.Path()))
	default:
		fileCfg = setup.RunWithDefaults()
	}

	if err := setup.WriteConfig(fileCfg); err != nil {
		return handleCommandError(cmd, err)
	}
	output.Success("Wrote %s", writer.Path())
	return nil
}

// NewConfigFmtCmd creates the config fmt subcommand.
func NewConfigFmtCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "fmt [file...]",
		Short: "Rewrite TOML files into canonical layout",
		Long: `Rewrite TOML files into the layout enforced by the config-format check.

Without arguments, formats every *.toml file in the source directory
(not recursive). With --check, only reports files that would change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigFmt(cmd, args, check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Report files that would change without writing them")
	return cmd
}

func runConfigFmt(cmd *cobra.Command, files []string, check bool) error {
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(cfg.SourceDir.Value, "*.toml"))
		if err != nil {
			return handleCommandError(cmd, err)
		}
		files = matches
	}

	var changed []string
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return handleCommandError(cmd, err)
		}
		formatted, err := tomlutil.Format(data)
		if err != nil {
			return handleCommandError(cmd, fmt.Errorf("%s: %w", name, err))
		}
		if bytes.Equal(data, formatted) {
			continue
		}
		changed = append(changed, name)
		if check {
			continue
		}
		info, err := os.Stat(name)
		if err != nil {
			return handleCommandError(cmd, err)
		}
		if err := os.WriteFile(name, formatted, info.Mode().Perm()); err != nil {
			return handleCommandError(cmd, err)
		}
	}

	out := cmd.OutOrStdout()
	for _, name := range changed {
		fmt.Fprintln(out, name)
	}
	if check && len(changed) > 0 {
		cmd.SilenceErrors = true
		return errAlreadyReported
	}
	return nil
}
