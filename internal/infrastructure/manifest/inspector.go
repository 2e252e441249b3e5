package manifest

import (
	"fmt"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
)

// Inspector implements ports.DependencyGraph for Cargo projects.
type Inspector struct{}

// NewInspector creates an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Fingerprint implements ports.DependencyGraph.
func (Inspector) Fingerprint(sourceDir string) (string, error) {
	fp, err := Fingerprint(sourceDir)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint dependencies: %w", err)
	}
	return fp, nil
}

// VerifyLocked implements ports.DependencyGraph.
func (Inspector) VerifyLocked(sourceDir string) error {
	drifts, err := Drift(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to compare manifest and lockfile: %w", err)
	}
	if len(drifts) > 0 {
		return &release.LockMismatchError{Drifts: drifts}
	}
	return nil
}

var _ ports.DependencyGraph = Inspector{}
