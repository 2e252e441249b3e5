package toolchain

import (
	"bufio"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
)

// Messages cargo prints when --locked forbids updating Cargo.lock.
var lockMismatchMarkers = []string{
	"--locked was passed",
	"needs to be updated but",
	"lock file needs to be updated",
}

func isLockMismatch(stderr string) bool {
	for _, m := range lockMismatchMarkers {
		if strings.Contains(stderr, m) {
			return true
		}
	}
	return false
}

func dependencyError(req ports.CompileRequest, res *executor.Result, err error) error {
	stderr := stderrOf(res)
	if isLockMismatch(stderr) {
		err = &release.LockMismatchError{Diagnostics: stderr}
	}
	return &release.DependencyBuildError{Triple: req.Triple, Diagnostics: stderr, Err: err}
}

func compileError(req ports.CompileRequest, res *executor.Result, err error) error {
	stderr := stderrOf(res)
	if isLockMismatch(stderr) {
		return &release.LockMismatchError{Diagnostics: stderr}
	}
	return &release.SourceCompileError{Triple: req.Triple, Diagnostics: stderr, Err: err}
}

func lintError(res *executor.Result, err error) error {
	if !exited(err) {
		return fmt.Errorf("failed to run clippy: %w", err)
	}
	stderr := stderrOf(res)
	if isLockMismatch(stderr) {
		return &release.LockMismatchError{Diagnostics: stderr}
	}
	return &release.LintViolationError{Violations: countLintErrors(stderr), Diagnostics: stderr}
}

func formatError(sourceDir string, res *executor.Result, err error) error {
	if !exited(err) {
		return fmt.Errorf("failed to run rustfmt: %w", err)
	}
	return &release.FormatViolationError{
		Kind:        release.FormatSource,
		Files:       diffFiles(sourceDir, res.Stdout),
		Diagnostics: strings.TrimRight(res.Stdout+res.Stderr, "\n"),
	}
}

// countWarnings counts compiler warnings, ignoring the per-crate summaries.
func countWarnings(stderr string) int {
	n := 0
	eachLine(stderr, func(line string) {
		if strings.HasPrefix(line, "warning:") && !strings.Contains(line, " generated ") {
			n++
		}
	})
	return n
}

// countLintErrors counts diagnostics promoted to errors by -D warnings.
func countLintErrors(stderr string) int {
	n := 0
	eachLine(stderr, func(line string) {
		if !strings.HasPrefix(line, "error:") && !strings.HasPrefix(line, "error[") {
			return
		}
		if strings.HasPrefix(line, "error: could not compile") || strings.HasPrefix(line, "error: aborting") {
			return
		}
		n++
	})
	return n
}

// diffFiles extracts the files rustfmt reported as unformatted, relative to
// sourceDir.
func diffFiles(sourceDir, stdout string) []string {
	seen := make(map[string]bool)
	eachLine(stdout, func(line string) {
		rest, ok := strings.CutPrefix(line, "Diff in ")
		if !ok {
			return
		}
		if i := strings.Index(rest, " at line "); i >= 0 {
			rest = rest[:i]
		} else {
			rest = strings.TrimSuffix(rest, ":")
			if i := strings.LastIndex(rest, ":"); i >= 0 {
				if _, err := strconv.Atoi(rest[i+1:]); err == nil {
					rest = rest[:i]
				}
			}
		}
		if filepath.IsAbs(rest) {
			if rel, err := filepath.Rel(sourceDir, rest); err == nil && !strings.HasPrefix(rel, "..") {
				rest = rel
			}
		}
		seen[filepath.ToSlash(rest)] = true
	})

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func eachLine(s string, fn func(string)) {
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fn(sc.Text())
	}
}
