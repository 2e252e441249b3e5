// Package manifest reads Cargo manifests and lockfiles: it fingerprints the
// dependency graph and detects drift between declared and locked versions.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	ManifestFile = "Cargo.toml"
	LockFile     = "Cargo.lock"
)

// Dependency kinds as they appear in a manifest.
var dependencyTables = []string{"dependencies", "dev-dependencies", "build-dependencies"}

// Manifest is one parsed Cargo.toml.
type Manifest struct {
	Path string // slash-separated, relative to the project root
	Raw  map[string]any
}

// Dependency is a single declared dependency.
type Dependency struct {
	Key         string // table key as written
	Name        string // crate name, after `package = ...` renames
	Requirement string // empty for path or git dependencies without a version
	Path        bool
	Git         bool
	Workspace   bool // `workspace = true`, resolved against [workspace.dependencies]
}

// Package returns the [package] name and version, if the manifest has them.
func (m *Manifest) Package() (name, version string, ok bool) {
	pkg, isTable := m.Raw["package"].(map[string]any)
	if !isTable {
		return "", "", false
	}
	name, _ = pkg["name"].(string)
	version, _ = pkg["version"].(string) // `version.workspace = true` yields ""
	return name, version, name != ""
}

// RustVersion returns [package] rust-version, the minimum supported rustc.
func (m *Manifest) RustVersion() string {
	pkg, _ := m.Raw["package"].(map[string]any)
	v, _ := pkg["rust-version"].(string)
	return v
}

// Dependencies returns every dependency declared in the manifest, including
// target-specific ones, sorted by name.
func (m *Manifest) Dependencies() []Dependency {
	var deps []Dependency
	collect := func(table map[string]any) {
		for _, kind := range dependencyTables {
			entries, _ := table[kind].(map[string]any)
			for key, spec := range entries {
				deps = append(deps, parseDependency(key, spec))
			}
		}
	}

	collect(m.Raw)
	if targets, ok := m.Raw["target"].(map[string]any); ok {
		for _, t := range targets {
			if table, ok := t.(map[string]any); ok {
				collect(table)
			}
		}
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].Requirement < deps[j].Requirement
	})
	return deps
}

// WorkspaceDependencies returns [workspace.dependencies] keyed by table key.
func (m *Manifest) WorkspaceDependencies() map[string]Dependency {
	out := map[string]Dependency{}
	ws, _ := m.Raw["workspace"].(map[string]any)
	entries, _ := ws["dependencies"].(map[string]any)
	for key, spec := range entries {
		out[key] = parseDependency(key, spec)
	}
	return out
}

func parseDependency(key string, spec any) Dependency {
	dep := Dependency{Key: key, Name: key}
	switch v := spec.(type) {
	case string:
		dep.Requirement = v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			dep.Requirement = s
		}
		if s, ok := v["package"].(string); ok && s != "" {
			dep.Name = s
		}
		_, dep.Path = v["path"]
		_, dep.Git = v["git"]
		if b, ok := v["workspace"].(bool); ok {
			dep.Workspace = b
		}
	}
	return dep
}

// ParseManifest parses Cargo.toml content.
func ParseManifest(rel string, data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rel, err)
	}
	return &Manifest{Path: rel, Raw: raw}, nil
}

// LoadManifests parses every Cargo.toml under root, root manifest first.
func LoadManifests(root string) ([]*Manifest, error) {
	var manifests []*Manifest
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "target" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestFile {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		m, err := ParseManifest(filepath.ToSlash(rel), data)
		if err != nil {
			return err
		}
		manifests = append(manifests, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no %s found under %s", ManifestFile, root)
	}

	sort.Slice(manifests, func(i, j int) bool {
		if manifests[i].Path == ManifestFile {
			return true
		}
		if manifests[j].Path == ManifestFile {
			return false
		}
		return manifests[i].Path < manifests[j].Path
	})
	if manifests[0].Path != ManifestFile {
		return nil, fmt.Errorf("no root %s in %s", ManifestFile, root)
	}
	return manifests, nil
}
