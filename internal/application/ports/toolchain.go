package ports

import "context"

// CompileRequest describes one compiler invocation.
type CompileRequest struct {
	SourceDir string // materialised snapshot, read-only
	TargetDir string // compiler output directory owned by the caller
	Triple    string
	Locked    bool // strict dependency mode
}

// CompileOutput is what the toolchain reports back on success.
type CompileOutput struct {
	BinaryPath string // set by BuildProject
	Warnings   int
	Log        string
}

// Toolchain is the compiler seen as a black box. Failures are reported with
// the release error taxonomy (DependencyBuildError, SourceCompileError,
// LockMismatchError, LintViolationError, FormatViolationError).
type Toolchain interface {
	// BuildDependencies compiles only the third-party dependency graph of the
	// project into req.TargetDir.
	BuildDependencies(ctx context.Context, req CompileRequest) (*CompileOutput, error)

	// BuildProject compiles the project binary named binaryName in release mode.
	BuildProject(ctx context.Context, req CompileRequest, binaryName string) (*CompileOutput, error)

	// Lint compiles every target with warnings promoted to errors.
	Lint(ctx context.Context, req CompileRequest) (*CompileOutput, error)

	// CheckFormat verifies source formatting without modifying any file.
	CheckFormat(ctx context.Context, sourceDir string) (*CompileOutput, error)
}
