// Package paths provides centralized path management for relbuild.
package paths

import (
	"os"
	"path/filepath"
)

// Directory constants relative to the home directory.
const (
	CacheDir     = "cache"
	DepsCacheDir = "cache/deps"
	RunsDir      = "runs"
)

// File name constants.
const (
	ConfigFile        = "config.toml"
	ProjectConfigFile = "relbuild.toml"
	MetadataFile      = "metadata.json"
	LockFileSuffix    = ".lock"
)

// Default output directory for release artifacts, relative to the working directory.
const DefaultOutputDir = "release"

const DefaultHomeDirName = ".relbuild"

// DefaultHomeDir returns $HOME/.relbuild or falls back to the current directory.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultHomeDirName
	}
	return filepath.Join(home, DefaultHomeDirName)
}

func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, ConfigFile)
}

// DepsCachePath is the root of the content-addressed dependency store.
func DepsCachePath(homeDir string) string {
	return filepath.Join(homeDir, DepsCacheDir)
}

func DepsEntryPath(homeDir, key string) string {
	return filepath.Join(DepsCachePath(homeDir), key)
}

// RunPath is the scratch directory of one pipeline run.
func RunPath(homeDir, runID string) string {
	return filepath.Join(homeDir, RunsDir, runID)
}

func RunSourcePath(homeDir, runID string) string {
	return filepath.Join(RunPath(homeDir, runID), "src")
}

// RunBuildPath is the triple-qualified directory the project builder compiles into.
func RunBuildPath(homeDir, runID, triple string) string {
	return filepath.Join(RunPath(homeDir, runID), "build", triple)
}

// RunChecksPath holds one scratch directory per validation check.
func RunChecksPath(homeDir, runID string) string {
	return filepath.Join(RunPath(homeDir, runID), "checks")
}
