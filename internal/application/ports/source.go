package ports

import (
	"context"

	"github.com/b-harvest/relbuild/internal/domain/release"
)

// SnapshotOptions controls which files a snapshot retains.
type SnapshotOptions struct {
	SourceDir  string
	StagingDir string   // where the filtered tree is materialised
	Include    []string // extra glob patterns to retain
	Exclude    []string // extra directories to skip (output and work dirs)
}

// Snapshotter builds immutable SourceSnapshots.
type Snapshotter interface {
	Snapshot(ctx context.Context, opts SnapshotOptions) (*release.SourceSnapshot, error)
}

// DependencyGraph reads the project's manifest and lockfile.
type DependencyGraph interface {
	// Fingerprint identifies the dependency graph; it changes exactly when
	// the set of third-party dependencies or their locked versions change.
	Fingerprint(sourceDir string) (string, error)

	// VerifyLocked returns a *release.LockMismatchError when the lockfile
	// does not satisfy the manifest.
	VerifyLocked(sourceDir string) error
}

// ConfigFormatChecker checks structured configuration files against the
// canonical format. It returns one message per violation.
type ConfigFormatChecker interface {
	Check(name string, data []byte) []string
}
