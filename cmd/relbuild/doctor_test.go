package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/di"
	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
	"github.com/b-harvest/relbuild/internal/prereq"
)

// toolchainOutputs answers commands by their command line.
type toolchainOutputs map[string]string

func (o toolchainOutputs) Run(_ context.Context, cmd executor.Command) (*executor.Result, error) {
	out, ok := o[cmd.String()]
	if !ok {
		return nil, errors.New("executable file not found in $PATH")
	}
	return &executor.Result{Stdout: out}, nil
}

func withExecutor(t *testing.T, exec executor.CommandExecutor) {
	t.Helper()
	containerOptions = []di.Option{di.WithExecutor(exec)}
	t.Cleanup(func() { containerOptions = nil })
}

func rustProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := "[package]\nname = \"gh-jj\"\nversion = \"0.3.1\"\nrust-version = \"1.74\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644))
	return dir
}

func TestDoctorCmd_AllPrerequisitesMet(t *testing.T) {
	withExecutor(t, toolchainOutputs{
		"cargo --version":                "cargo 1.78.0 (54d8815d0 2024-03-26)",
		"rustc --version":                "rustc 1.78.0 (9b00956e5 2024-04-29)",
		"cargo clippy --version":         "clippy 0.1.78 (9b00956 2024-04-29)",
		"cargo fmt --version":            "rustfmt 1.7.0-stable (9b00956 2024-04-29)",
		"rustup target list --installed": "aarch64-unknown-linux-gnu\nx86_64-unknown-linux-gnu",
	})

	out, err := execute(t, "doctor", "--json", "--platform", "linux-arm64", "--source", rustProject(t))
	require.NoError(t, err)

	var results []prereq.PrereqResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Found, r.Name)
	}
	assert.Equal(t, "target aarch64-unknown-linux-gnu", results[4].Name)
}

func TestDoctorCmd_OldRustcFails(t *testing.T) {
	withExecutor(t, toolchainOutputs{
		"cargo --version": "cargo 1.70.0 (ec8a8a0ca 2023-04-25)",
		"rustc --version": "rustc 1.70.0 (90c541806 2023-05-31)",
	})

	out, err := execute(t, "doctor", "--source", rustProject(t))
	require.Error(t, err)
	assert.Contains(t, out, "rustc 1.70.0 is older than rust-version 1.74")
	assert.Contains(t, out, "rustup update")
}
