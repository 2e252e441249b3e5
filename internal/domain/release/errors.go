package release

import (
	"fmt"
	"strings"

	"github.com/b-harvest/relbuild/internal/domain/common"
)

// Component names used in error reports.
const (
	ComponentResolver  = "target-resolver"
	ComponentDepsCache = "dependency-cache-builder"
	ComponentProject   = "project-builder"
	ComponentGate      = "validation-gate"
	ComponentPackager  = "release-packager"
)

// DependencyBuildError is returned when a dependency cannot be fetched or
// compiled. It is fatal for the run.
type DependencyBuildError struct {
	Triple      string
	Fingerprint string
	Diagnostics string
	Err         error
}

func (e *DependencyBuildError) Error() string {
	msg := fmt.Sprintf("dependency build for %s failed", e.Triple)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DependencyBuildError) Unwrap() error            { return e.Err }
func (e *DependencyBuildError) Component() string        { return ComponentDepsCache }
func (e *DependencyBuildError) ShouldSilenceUsage() bool { return true }

func (e *DependencyBuildError) UserMessage() string {
	return withDiagnostics(e.Error(), e.Diagnostics)
}

func (e *DependencyBuildError) RecoveryHint() string {
	return fmt.Sprintf("check network access to the crate registry and that the %s target is installed (rustup target add %s)", e.Triple, e.Triple)
}

// SourceCompileError is returned when the project sources fail to compile.
// Diagnostics holds the compiler output verbatim.
type SourceCompileError struct {
	Triple      string
	Diagnostics string
	Err         error
}

func (e *SourceCompileError) Error() string {
	msg := fmt.Sprintf("compiling project for %s failed", e.Triple)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceCompileError) Unwrap() error            { return e.Err }
func (e *SourceCompileError) Component() string        { return ComponentProject }
func (e *SourceCompileError) ShouldSilenceUsage() bool { return true }

func (e *SourceCompileError) UserMessage() string {
	return withDiagnostics(e.Error(), e.Diagnostics)
}

// LockDrift is one declared dependency whose lockfile entry no longer satisfies it.
type LockDrift struct {
	Name     string `json:"name"`
	Declared string `json:"declared"`
	Locked   string `json:"locked"` // empty when the dependency is missing from the lockfile
}

func (d LockDrift) String() string {
	locked := d.Locked
	if locked == "" {
		locked = "(not locked)"
	}
	return fmt.Sprintf("%s: declared %q, locked %s", d.Name, d.Declared, locked)
}

// LockMismatchError is returned in strict dependency mode when the manifest
// and the lockfile disagree.
type LockMismatchError struct {
	Drifts      []LockDrift
	Diagnostics string
}

func (e *LockMismatchError) Error() string {
	if len(e.Drifts) == 0 {
		return "lockfile is out of date with the manifest"
	}
	parts := make([]string, len(e.Drifts))
	for i, d := range e.Drifts {
		parts[i] = d.String()
	}
	return "lockfile is out of date with the manifest: " + strings.Join(parts, "; ")
}

func (e *LockMismatchError) Component() string        { return ComponentProject }
func (e *LockMismatchError) ShouldSilenceUsage() bool { return true }

func (e *LockMismatchError) UserMessage() string {
	return withDiagnostics(e.Error(), e.Diagnostics)
}

func (e *LockMismatchError) RecoveryHint() string {
	return "run `cargo update -w` (or `cargo generate-lockfile`) and commit Cargo.lock"
}

// LintViolationError is returned when the linter reports any diagnostic.
type LintViolationError struct {
	Violations  int
	Diagnostics string
}

func (e *LintViolationError) Error() string {
	if e.Violations > 0 {
		return fmt.Sprintf("lint reported %d violation(s)", e.Violations)
	}
	return "lint reported violations"
}

func (e *LintViolationError) Component() string        { return ComponentGate }
func (e *LintViolationError) ShouldSilenceUsage() bool { return true }

func (e *LintViolationError) UserMessage() string {
	return withDiagnostics(e.Error(), e.Diagnostics)
}

// FormatKind distinguishes source code from structured configuration files.
type FormatKind string

const (
	FormatSource FormatKind = "source"
	FormatConfig FormatKind = "config"
)

// FormatViolationError is returned when files deviate from the canonical format.
type FormatViolationError struct {
	Kind        FormatKind
	Files       []string
	Diagnostics string
}

func (e *FormatViolationError) Error() string {
	if len(e.Files) == 0 {
		return fmt.Sprintf("%s files are not canonically formatted", e.Kind)
	}
	return fmt.Sprintf("%d %s file(s) not canonically formatted: %s", len(e.Files), e.Kind, strings.Join(e.Files, ", "))
}

func (e *FormatViolationError) Component() string        { return ComponentGate }
func (e *FormatViolationError) ShouldSilenceUsage() bool { return true }

func (e *FormatViolationError) UserMessage() string {
	return withDiagnostics(e.Error(), e.Diagnostics)
}

func (e *FormatViolationError) RecoveryHint() string {
	if e.Kind == FormatSource {
		return "run `cargo fmt --all`"
	}
	return "normalise the listed TOML files (single spaces around '=', no trailing whitespace, one final newline)"
}

// PackagingError is returned when the binary cannot be moved into the
// release directory.
type PackagingError struct {
	Op   string
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging %s %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error            { return e.Err }
func (e *PackagingError) Component() string        { return ComponentPackager }
func (e *PackagingError) ShouldSilenceUsage() bool { return true }

// TripleMismatchError is returned when the project builder is handed a
// dependency artifact for a different triple than requested.
type TripleMismatchError struct {
	Requested string
	Artifact  string
}

func (e *TripleMismatchError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("no dependency artifact supplied for %s", e.Requested)
	}
	return fmt.Sprintf("dependency artifact was built for %s, not %s", e.Artifact, e.Requested)
}

func (e *TripleMismatchError) Component() string        { return ComponentProject }
func (e *TripleMismatchError) ShouldSilenceUsage() bool { return true }

// PlatformMismatchError is returned under strict platform checking when the
// triple and tag do not form a catalog pair.
type PlatformMismatchError struct {
	Triple   string
	Tag      string
	Expected string
}

func (e *PlatformMismatchError) Error() string {
	return fmt.Sprintf("compiler triple %s does not match release tag %s (%s)", e.Triple, e.Tag, e.Expected)
}

func (e *PlatformMismatchError) Component() string        { return ComponentResolver }
func (e *PlatformMismatchError) ShouldSilenceUsage() bool { return true }

func (e *PlatformMismatchError) RecoveryHint() string {
	return "use --platform to select a matching pair, or disable strict_platform"
}

// GateBlockedError is returned when packaging is made conditional on the
// validation gate and the gate did not pass.
type GateBlockedError struct {
	Failed []CheckName
}

func (e *GateBlockedError) Error() string {
	names := make([]string, len(e.Failed))
	for i, n := range e.Failed {
		names[i] = string(n)
	}
	return "validation gate failed: " + strings.Join(names, ", ")
}

func (e *GateBlockedError) Component() string        { return ComponentGate }
func (e *GateBlockedError) ShouldSilenceUsage() bool { return true }

func (e *GateBlockedError) RecoveryHint() string {
	return "run `relbuild check` for details"
}

func withDiagnostics(msg, diagnostics string) string {
	diagnostics = strings.TrimRight(diagnostics, "\n")
	if diagnostics == "" {
		return msg
	}
	return msg + "\n\n" + diagnostics
}

var (
	_ common.ComponentError    = (*DependencyBuildError)(nil)
	_ common.UserFacingError   = (*SourceCompileError)(nil)
	_ common.RecoverableError  = (*LockMismatchError)(nil)
	_ common.UserFacingError   = (*LintViolationError)(nil)
	_ common.RecoverableError  = (*FormatViolationError)(nil)
	_ common.ComponentError    = (*PackagingError)(nil)
	_ common.SilenceUsageError = (*TripleMismatchError)(nil)
)
