// Package release holds the data handed between pipeline stages and the
// error taxonomy those stages report.
package release

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// SourceFile is one file retained in a SourceSnapshot.
type SourceFile struct {
	Path   string      `json:"path"` // slash-separated, relative to the snapshot root
	Size   int64       `json:"size"`
	Mode   fs.FileMode `json:"mode"`
	SHA256 string      `json:"sha256"`
}

// SourceSnapshot is an immutable filtered view of the project tree.
// Root is a materialised copy; consumers read it and never write to it.
type SourceSnapshot struct {
	Origin    string       `json:"origin"`
	Root      string       `json:"root"`
	Files     []SourceFile `json:"files"`
	Digest    string       `json:"digest"`
	CreatedAt time.Time    `json:"created_at"`
}

// Has reports whether rel is part of the snapshot.
func (s *SourceSnapshot) Has(rel string) bool {
	i := sort.Search(len(s.Files), func(i int) bool { return s.Files[i].Path >= rel })
	return i < len(s.Files) && s.Files[i].Path == rel
}

// FilesWithExt returns the files whose name ends in ext, in snapshot order.
func (s *SourceSnapshot) FilesWithExt(ext string) []SourceFile {
	var out []SourceFile
	for _, f := range s.Files {
		if strings.EqualFold(path.Ext(f.Path), ext) {
			out = append(out, f)
		}
	}
	return out
}

// ShortDigest returns the first 12 characters of the digest.
func (s *SourceSnapshot) ShortDigest() string {
	if len(s.Digest) > 12 {
		return s.Digest[:12]
	}
	return s.Digest
}

// CommonBuildInputs is built once per run and passed unchanged to the
// dependency cache builder, the project builder and every validation check.
type CommonBuildInputs struct {
	Snapshot             *SourceSnapshot
	StrictDependencyMode bool
}

// NewCommonBuildInputs returns inputs in strict dependency mode.
func NewCommonBuildInputs(snapshot *SourceSnapshot) CommonBuildInputs {
	return CommonBuildInputs{
		Snapshot:             snapshot,
		StrictDependencyMode: true,
	}
}

// SourceDir is the materialised snapshot root.
func (in CommonBuildInputs) SourceDir() string {
	if in.Snapshot == nil {
		return ""
	}
	return in.Snapshot.Root
}

// DependencyCacheArtifact is the compiled dependency graph for one triple.
// TargetDir belongs to the store; consumers copy from it and never mutate it.
type DependencyCacheArtifact struct {
	Key         string    `json:"key" yaml:"key"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Triple      string    `json:"triple" yaml:"triple"`
	TargetDir   string    `json:"target_dir" yaml:"target_dir"`
	Size        int64     `json:"size" yaml:"size"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	FromCache   bool      `json:"from_cache" yaml:"from_cache"`
}

// BinaryArtifact is the compiled project executable.
type BinaryArtifact struct {
	Path   string `json:"path" yaml:"path"`
	Triple string `json:"triple" yaml:"triple"`
	Size   int64  `json:"size" yaml:"size"`
}

// ReleaseArtifact is the packaged, platform-named binary.
type ReleaseArtifact struct {
	Path        string `json:"path" yaml:"path"`
	PlatformTag string `json:"platform_tag" yaml:"platform_tag"`
	SHA256      string `json:"sha256" yaml:"sha256"`
	Size        int64  `json:"size" yaml:"size"`
}

// CheckName identifies a validation check.
type CheckName string

const (
	CheckBuild        CheckName = "build"
	CheckLint         CheckName = "lint"
	CheckFormat       CheckName = "format"
	CheckConfigFormat CheckName = "config-format"
)

// AllChecks lists the checks in report order.
var AllChecks = []CheckName{CheckBuild, CheckLint, CheckFormat, CheckConfigFormat}

// ParseCheckName validates a check name given on the command line.
func ParseCheckName(s string) (CheckName, bool) {
	for _, c := range AllChecks {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// CheckStatus is the outcome of one check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
)

// CheckResult is reported by every check, pass or fail.
type CheckResult struct {
	Name     CheckName     `json:"name" yaml:"name"`
	Status   CheckStatus   `json:"status" yaml:"status"`
	Details  string        `json:"details,omitempty" yaml:"details,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Err      error         `json:"-" yaml:"-"`
}

// Passed reports whether the check passed.
func (r CheckResult) Passed() bool {
	return r.Status == StatusPass
}

// Pass builds a passing result.
func Pass(name CheckName, details string) CheckResult {
	return CheckResult{Name: name, Status: StatusPass, Details: details}
}

// Fail builds a failing result carrying err.
func Fail(name CheckName, err error) CheckResult {
	r := CheckResult{Name: name, Status: StatusFail, Err: err}
	if err != nil {
		r.Details = err.Error()
	}
	return r
}
