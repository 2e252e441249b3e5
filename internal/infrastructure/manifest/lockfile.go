package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LockedPackage is one [[package]] entry of Cargo.lock.
type LockedPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

// Local reports whether the package is part of the project itself
// (workspace member or path dependency) rather than fetched from a source.
func (p LockedPackage) Local() bool {
	return p.Source == ""
}

// Lockfile is a parsed Cargo.lock.
type Lockfile struct {
	Version  int             `toml:"version"`
	Packages []LockedPackage `toml:"package"`
}

// Versions returns every locked version of the named crate.
func (l *Lockfile) Versions(name string) []string {
	var out []string
	for _, p := range l.Packages {
		if p.Name == name {
			out = append(out, p.Version)
		}
	}
	return out
}

// LocalVersion returns the version of a local package.
func (l *Lockfile) LocalVersion(name string) (string, bool) {
	for _, p := range l.Packages {
		if p.Name == name && p.Local() {
			return p.Version, true
		}
	}
	return "", false
}

// ParseLockfile parses Cargo.lock content.
func ParseLockfile(data []byte) (*Lockfile, error) {
	var lock Lockfile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", LockFile, err)
	}
	return &lock, nil
}

// LoadLockfile reads root/Cargo.lock. It returns os.ErrNotExist (wrapped)
// when the project has no lockfile.
func LoadLockfile(root string) (*Lockfile, error) {
	data, err := os.ReadFile(filepath.Join(root, LockFile))
	if err != nil {
		return nil, err
	}
	return ParseLockfile(data)
}
