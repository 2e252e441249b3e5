// Package dto holds the inputs and outputs of the application use cases.
package dto

import (
	"time"

	"github.com/b-harvest/relbuild/internal/domain/release"
)

// DependencyBuildInput contains the input for building the dependency cache.
type DependencyBuildInput struct {
	Inputs  release.CommonBuildInputs
	Triple  string
	NoCache bool   // Rebuild and replace an existing entry
	RunID   string // Recorded in the entry metadata
}

// ProjectBuildInput contains the input for compiling the project binary.
type ProjectBuildInput struct {
	Inputs  release.CommonBuildInputs
	Triple  string
	Deps    *release.DependencyCacheArtifact
	WorkDir string // Private scratch directory; the target dir is created here
}

// PackageInput contains the input for packaging a release.
type PackageInput struct {
	Binary    release.BinaryArtifact
	Tag       string
	OutputDir string
}

// CacheListInput contains the input for listing dependency cache entries.
type CacheListInput struct {
	Triple string // Only entries for this triple; empty for all
}

// CacheEntry represents one dependency cache entry.
type CacheEntry struct {
	Key         string    `json:"key" yaml:"key"`
	Triple      string    `json:"triple" yaml:"triple"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	Size        int64     `json:"size" yaml:"size"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	RunID       string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Path        string    `json:"path" yaml:"path"`
}

// CacheListOutput contains the dependency cache entries, newest first.
type CacheListOutput struct {
	Entries   []CacheEntry `json:"entries" yaml:"entries"`
	TotalSize int64        `json:"total_size" yaml:"total_size"`
}

// CacheInfoInput contains the input for inspecting one entry.
type CacheInfoInput struct {
	Key string
}

// CacheInfoOutput describes one entry and the store as a whole.
type CacheInfoOutput struct {
	Entry        *CacheEntry `json:"entry,omitempty" yaml:"entry,omitempty"`
	TotalEntries int         `json:"total_entries" yaml:"total_entries"`
	TotalSize    int64       `json:"total_size" yaml:"total_size"`
}

// CacheCleanInput contains the input for cleaning the dependency cache.
type CacheCleanInput struct {
	OlderThan time.Duration // Zero removes every entry
	Keys      []string      // Specific keys to remove; overrides OlderThan
}

// CacheCleanOutput contains the result of cache cleaning.
type CacheCleanOutput struct {
	Removed    []string `json:"removed" yaml:"removed"`
	SpaceFreed int64    `json:"space_freed" yaml:"space_freed"`
}
