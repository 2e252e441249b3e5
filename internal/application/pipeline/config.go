// Package pipeline chains snapshot, dependency build, project build,
// validation and packaging into one release run.
package pipeline

import (
	"github.com/b-harvest/relbuild/internal/domain/platform"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// Config is the fully resolved configuration of one run. It is built once by
// the command layer; nothing below it reads the environment.
type Config struct {
	HomeDir   string
	SourceDir string
	OutputDir string
	Request   platform.Request

	// StrictPlatform turns a triple/tag pair outside the catalog into an
	// error instead of a warning.
	StrictPlatform bool
	// RequireChecks runs the validation gate before packaging and refuses to
	// package when it fails.
	RequireChecks bool

	NoCache  bool
	KeepWork bool
	Jobs     int
	Include  []string
	Only     []release.CheckName
}
