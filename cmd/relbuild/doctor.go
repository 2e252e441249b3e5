package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/infrastructure/manifest"
	"github.com/b-harvest/relbuild/internal/prereq"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the Rust toolchain can build a release",
		Long: `Check the Rust toolchain before a build: cargo and rustc (against the
project's rust-version), the clippy and rustfmt components used by the
validation gate, and the standard library for the resolved compiler triple.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func runDoctor(cmd *cobra.Command) error {
	req, err := cfg.Request()
	if err != nil {
		return handleCommandError(cmd, err)
	}

	checker := newContainer().PrereqChecker().
		ForTriple(req.CompilerTriple).
		RequireRustVersion(rustVersion(cfg.SourceDir.Value))

	results, checkErr := checker.Check(cmd.Context())

	if cfg.JSON.Value {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if checkErr != nil {
			cmd.SilenceErrors = true
			return errAlreadyReported
		}
		return nil
	}

	printPrereqResults(cmd, results)
	if checkErr != nil {
		return handleCommandError(cmd, checkErr)
	}
	return nil
}

func printPrereqResults(cmd *cobra.Command, results []prereq.PrereqResult) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		status := color.GreenString("ok  ")
		switch {
		case !r.Found && r.Required:
			status = color.RedString("FAIL")
		case !r.Found:
			status = color.YellowString("warn")
		}
		fmt.Fprintf(out, "[%s] %-8s %s\n", status, r.Name, r.Message)
		if !r.Found && r.Suggestion != "" {
			fmt.Fprintf(out, "       %s\n", r.Suggestion)
		}
	}
}

// rustVersion reads rust-version from the root manifest of dir. A missing or
// unreadable manifest yields no minimum.
func rustVersion(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, manifest.ManifestFile))
	if err != nil {
		return ""
	}
	m, err := manifest.ParseManifest(manifest.ManifestFile, data)
	if err != nil {
		return ""
	}
	return m.RustVersion()
}
