// Package prereq verifies the Rust toolchain a build needs is installed.
package prereq

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
)

// PrereqResult contains the result of a prerequisite check.
type PrereqResult struct {
	Name       string `json:"name"`
	Required   bool   `json:"required"`
	Found      bool   `json:"found"`
	Version    string `json:"version,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Checker performs prerequisite checks.
type Checker struct {
	exec        executor.CommandExecutor
	cargo       string
	triple      string
	rustVersion string // minimum rustc from Cargo.toml rust-version
	results     []PrereqResult
}

// NewChecker creates a new prerequisite Checker running cargo as binary.
func NewChecker(exec executor.CommandExecutor, cargo string) *Checker {
	if cargo == "" {
		cargo = "cargo"
	}
	return &Checker{
		exec:    exec,
		cargo:   cargo,
		results: make([]PrereqResult, 0),
	}
}

// ForTriple also verifies the standard library for triple is installed.
func (c *Checker) ForTriple(triple string) *Checker {
	c.triple = triple
	return c
}

// RequireRustVersion sets the minimum rustc version, as written in a
// manifest's rust-version field ("1.74" or "1.74.1").
func (c *Checker) RequireRustVersion(v string) *Checker {
	c.rustVersion = v
	return c
}

// Check performs all prerequisite checks and returns the results. The error
// names the first required prerequisite that is missing.
func (c *Checker) Check(ctx context.Context) ([]PrereqResult, error) {
	c.results = make([]PrereqResult, 0)

	c.checkCargo(ctx)
	c.checkRustc(ctx)
	c.checkComponent(ctx, "clippy", "clippy", "lint")
	c.checkComponent(ctx, "rustfmt", "fmt", "format")
	if c.triple != "" {
		c.checkTarget(ctx)
	}

	for _, result := range c.results {
		if result.Required && !result.Found {
			return c.results, fmt.Errorf("prerequisite not met: %s - %s", result.Name, result.Message)
		}
	}
	return c.results, nil
}

// Results returns the check results.
func (c *Checker) Results() []PrereqResult {
	return c.results
}

func (c *Checker) run(ctx context.Context, name string, args ...string) (string, bool) {
	res, err := c.exec.Run(ctx, executor.Command{Name: name, Args: args})
	if err != nil || res == nil {
		return "", false
	}
	return strings.TrimSpace(res.Stdout), true
}

// checkCargo checks that cargo runs.
func (c *Checker) checkCargo(ctx context.Context) {
	result := PrereqResult{Name: "cargo", Required: true}

	out, ok := c.run(ctx, c.cargo, "--version")
	if !ok {
		result.Message = fmt.Sprintf("%s is not installed", c.cargo)
		result.Suggestion = "Install Rust with rustup: https://rustup.rs"
		c.results = append(c.results, result)
		return
	}

	// "cargo 1.78.0 (54d8815d0 2024-03-26)"
	result.Version = versionField(out)
	result.Found = true
	result.Message = fmt.Sprintf("cargo %s is available", result.Version)
	c.results = append(c.results, result)
}

// checkRustc checks rustc against the manifest's minimum version.
func (c *Checker) checkRustc(ctx context.Context) {
	result := PrereqResult{Name: "rustc", Required: true}

	out, ok := c.run(ctx, "rustc", "--version")
	if !ok {
		result.Message = "rustc is not installed"
		result.Suggestion = "Install Rust with rustup: https://rustup.rs"
		c.results = append(c.results, result)
		return
	}
	result.Version = versionField(out)

	if c.rustVersion != "" {
		ok, err := satisfies(result.Version, c.rustVersion)
		if err != nil {
			result.Message = err.Error()
			c.results = append(c.results, result)
			return
		}
		if !ok {
			result.Message = fmt.Sprintf("rustc %s is older than rust-version %s", result.Version, c.rustVersion)
			result.Suggestion = "Run: rustup update"
			c.results = append(c.results, result)
			return
		}
	}

	result.Found = true
	result.Message = fmt.Sprintf("rustc %s is available", result.Version)
	c.results = append(c.results, result)
}

// checkComponent checks an optional cargo subcommand used by one gate check.
func (c *Checker) checkComponent(ctx context.Context, component, subcommand, check string) {
	result := PrereqResult{Name: component}

	out, ok := c.run(ctx, c.cargo, subcommand, "--version")
	if !ok {
		result.Message = fmt.Sprintf("%s is not installed; the %s check will fail", component, check)
		result.Suggestion = "Run: rustup component add " + component
		c.results = append(c.results, result)
		return
	}

	result.Version = versionField(out)
	result.Found = true
	result.Message = fmt.Sprintf("%s %s is available", component, result.Version)
	c.results = append(c.results, result)
}

// checkTarget checks that rustup has the standard library for the triple.
// Without rustup the answer is unknown and the check is not required.
func (c *Checker) checkTarget(ctx context.Context) {
	result := PrereqResult{Name: "target " + c.triple}

	out, ok := c.run(ctx, "rustup", "target", "list", "--installed")
	if !ok {
		result.Message = "rustup not found; cannot verify installed targets"
		c.results = append(c.results, result)
		return
	}

	result.Required = true
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == c.triple {
			result.Found = true
			result.Message = fmt.Sprintf("%s is installed", c.triple)
			c.results = append(c.results, result)
			return
		}
	}
	result.Message = fmt.Sprintf("%s is not installed", c.triple)
	result.Suggestion = "Run: rustup target add " + c.triple
	c.results = append(c.results, result)
}

// AllPassed returns true if all required checks passed.
func (c *Checker) AllPassed() bool {
	return len(c.FailedChecks()) == 0
}

// FailedChecks returns only the failed required checks.
func (c *Checker) FailedChecks() []PrereqResult {
	failed := make([]PrereqResult, 0)
	for _, result := range c.results {
		if result.Required && !result.Found {
			failed = append(failed, result)
		}
	}
	return failed
}

// versionField extracts the second word of "<tool> <version> ...".
func versionField(out string) string {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return out
	}
	return fields[1]
}

// satisfies reports whether installed >= minimum. Pre-release suffixes such
// as "1.80.0-nightly" compare by their release numbers.
func satisfies(installed, minimum string) (bool, error) {
	have, err := semver.NewVersion(installed)
	if err != nil {
		return false, fmt.Errorf("cannot parse rustc version %q: %w", installed, err)
	}
	want, err := semver.NewVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("cannot parse rust-version %q: %w", minimum, err)
	}
	release, _ := have.SetPrerelease("")
	return !release.LessThan(want), nil
}
