package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Files that select the compiler itself and therefore every compiled dependency.
var toolchainFiles = []string{"rust-toolchain.toml", "rust-toolchain"}

// Top-level manifest tables that influence dependency resolution besides
// the dependency tables themselves.
var resolutionTables = []string{"patch", "replace", "profile"}

// Fingerprint hashes the dependency graph of the project under root:
// every manifest's dependency tables, the resolution tables of the root
// manifest, all non-local lockfile entries and the toolchain pin.
//
// Project sources and local package versions do not contribute, so editing
// code or bumping the project version keeps the fingerprint stable.
func Fingerprint(root string) (string, error) {
	manifests, err := LoadManifests(root)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	write := func(label string, v any) error {
		data, err := json.Marshal(v) // map keys are sorted by encoding/json
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", label, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00", label, len(data))
		h.Write(data)
		return nil
	}

	for _, m := range manifests {
		for _, table := range dependencyTables {
			if err := write(m.Path+"#"+table, m.Raw[table]); err != nil {
				return "", err
			}
		}
		if err := write(m.Path+"#target", targetDependencies(m.Raw)); err != nil {
			return "", err
		}
		if ws, ok := m.Raw["workspace"].(map[string]any); ok {
			if err := write(m.Path+"#workspace.dependencies", ws["dependencies"]); err != nil {
				return "", err
			}
		}
	}

	root0 := manifests[0]
	for _, table := range resolutionTables {
		if err := write("resolution#"+table, root0.Raw[table]); err != nil {
			return "", err
		}
	}

	lock, err := LoadLockfile(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if lock != nil {
		var external []LockedPackage
		for _, p := range lock.Packages {
			if !p.Local() {
				external = append(external, p)
			}
		}
		sort.Slice(external, func(i, j int) bool {
			if external[i].Name != external[j].Name {
				return external[i].Name < external[j].Name
			}
			return external[i].Version < external[j].Version
		})
		if err := write("lock", external); err != nil {
			return "", err
		}
	}

	for _, name := range toolchainFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00", name, len(data))
		h.Write(data)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// targetDependencies extracts only the dependency tables of [target.*].
func targetDependencies(raw map[string]any) map[string]any {
	targets, ok := raw["target"].(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]any{}
	for cfg, t := range targets {
		table, ok := t.(map[string]any)
		if !ok {
			continue
		}
		sub := map[string]any{}
		for _, kind := range dependencyTables {
			if v, ok := table[kind]; ok {
				sub[kind] = v
			}
		}
		if len(sub) > 0 {
			out[cfg] = sub
		}
	}
	return out
}
