package source

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// VCS metadata directories, skipped at any depth.
var vcsDirs = map[string]bool{
	".git": true,
	".jj":  true,
	".hg":  true,
	".svn": true,
}

// Scratch and build output directories, skipped only at the project root.
// Nested directories with these names can be ordinary Rust modules.
var rootScratchDirs = map[string]bool{
	"target":       true,
	"dist":         true,
	"node_modules": true,
	".direnv":      true,
}

// cargoTargetTag is written by cargo into every target directory it creates.
const cargoTargetTag = "CACHEDIR.TAG"

// ignoreSet accumulates .gitignore patterns while the tree is walked.
type ignoreSet struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

func newIgnoreSet() *ignoreSet {
	return &ignoreSet{matcher: gitignore.NewMatcher(nil)}
}

// load reads dir/.gitignore, scoping its patterns to domain.
func (s *ignoreSet) load(dir string, domain []string) error {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	added := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.patterns = append(s.patterns, gitignore.ParsePattern(line, domain))
		added = true
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if added {
		s.matcher = gitignore.NewMatcher(s.patterns)
	}
	return nil
}

func (s *ignoreSet) ignored(segments []string, isDir bool) bool {
	return s.matcher.Match(segments, isDir)
}

// skipDir reports whether the directory at dir, with snapshot-relative
// segments, is excluded regardless of .gitignore.
func skipDir(dir string, segments []string) bool {
	if len(segments) == 0 {
		return false
	}
	name := segments[len(segments)-1]
	if vcsDirs[name] {
		return true
	}
	if len(segments) == 1 {
		return rootScratchDirs[name] || strings.HasPrefix(name, "result")
	}
	// a member crate built on its own gets its own target directory
	if name == "target" {
		_, err := os.Stat(filepath.Join(dir, cargoTargetTag))
		return err == nil
	}
	return false
}

func splitRel(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
