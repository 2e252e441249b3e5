package dto

import (
	"time"

	"github.com/b-harvest/relbuild/internal/domain/release"
)

// CheckInput contains the input for running the validation gate.
type CheckInput struct {
	Inputs  release.CommonBuildInputs
	Triple  string
	Only    []release.CheckName // Subset to run; empty runs every check
	Jobs    int                 // Concurrent checks; <= 0 runs all at once
	RunID   string
	WorkDir string // Each check gets its own subdirectory
}

// CheckReport is the gate verdict with one result per check, in report order.
type CheckReport struct {
	RunID      string                `json:"run_id" yaml:"run_id"`
	Triple     string                `json:"triple" yaml:"triple"`
	Snapshot   string                `json:"snapshot" yaml:"snapshot"`
	Results    []release.CheckResult `json:"results" yaml:"results"`
	Releasable bool                  `json:"releasable" yaml:"releasable"`
	Duration   time.Duration         `json:"duration" yaml:"duration"`
}

// Failed lists the checks that did not pass.
func (r *CheckReport) Failed() []release.CheckName {
	var failed []release.CheckName
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res.Name)
		}
	}
	return failed
}
