package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootManifest = `[package]
name = "gh-jj"
version = "0.3.1"
edition = "2021"

[dependencies]
clap = { version = "4.5", features = ["derive"] }
octocrab = "0.41"
tokio = { version = "1", features = ["full"] }
serde_json = "1.0.128"
jjconfig = { path = "crates/jjconfig" }

[dev-dependencies]
tempfile = "3"

[target.'cfg(unix)'.dependencies]
nix = "0.29"
`

const memberManifest = `[package]
name = "jjconfig"
version = "0.1.0"

[dependencies]
toml = "0.8"
`

const lockfile = `version = 3

[[package]]
name = "clap"
version = "4.5.20"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "aaaa"

[[package]]
name = "gh-jj"
version = "0.3.1"
dependencies = ["clap", "octocrab", "tokio"]

[[package]]
name = "jjconfig"
version = "0.1.0"
dependencies = ["toml"]

[[package]]
name = "nix"
version = "0.29.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "bbbb"

[[package]]
name = "octocrab"
version = "0.41.2"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "cccc"

[[package]]
name = "serde_json"
version = "1.0.132"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "dddd"

[[package]]
name = "tempfile"
version = "3.13.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "eeee"

[[package]]
name = "tokio"
version = "1.41.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "ffff"

[[package]]
name = "toml"
version = "0.8.19"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "0000"
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func project(t *testing.T) string {
	return writeProject(t, map[string]string{
		"Cargo.toml":                 rootManifest,
		"Cargo.lock":                 lockfile,
		"crates/jjconfig/Cargo.toml": memberManifest,
		"src/main.rs":                "fn main() {}\n",
	})
}

func TestManifest_Dependencies(t *testing.T) {
	m, err := ParseManifest("Cargo.toml", []byte(rootManifest))
	require.NoError(t, err)

	name, version, ok := m.Package()
	require.True(t, ok)
	assert.Equal(t, "gh-jj", name)
	assert.Equal(t, "0.3.1", version)

	deps := m.Dependencies()
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"clap", "jjconfig", "nix", "octocrab", "serde_json", "tempfile", "tokio"}, names)
	assert.True(t, deps[1].Path)
	assert.Equal(t, "4.5", deps[0].Requirement)
}

func TestDrift_CleanProject(t *testing.T) {
	drifts, err := Drift(project(t))
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.NoError(t, NewInspector().VerifyLocked(project(t)))
}

func TestDrift_DeclaredVersionBeyondLock(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":                 strings.Replace(rootManifest, `serde_json = "1.0.128"`, `serde_json = "1.0.200"`, 1),
		"Cargo.lock":                 lockfile,
		"crates/jjconfig/Cargo.toml": memberManifest,
	})

	err := NewInspector().VerifyLocked(root)
	var mismatch *release.LockMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Len(t, mismatch.Drifts, 1)
	assert.Equal(t, release.LockDrift{Name: "serde_json", Declared: "1.0.200", Locked: "1.0.132"}, mismatch.Drifts[0])
}

func TestDrift_LockEditedToDivergentVersion(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml":                 rootManifest,
		"Cargo.lock":                 strings.Replace(lockfile, `version = "1.41.0"`, `version = "0.2.25"`, 1),
		"crates/jjconfig/Cargo.toml": memberManifest,
	})

	drifts, err := Drift(root)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "tokio", drifts[0].Name)
}

func TestDrift_MissingDependencyAndPackageVersion(t *testing.T) {
	manifest := strings.Replace(rootManifest, `version = "0.3.1"`, `version = "0.4.0"`, 1)
	manifest += "anyhow = \"1\"\n"
	root := writeProject(t, map[string]string{
		"Cargo.toml":                 manifest,
		"Cargo.lock":                 lockfile,
		"crates/jjconfig/Cargo.toml": memberManifest,
	})

	drifts, err := Drift(root)
	require.NoError(t, err)
	require.Len(t, drifts, 2)
	assert.Equal(t, release.LockDrift{Name: "anyhow", Declared: "1"}, drifts[0])
	assert.Equal(t, release.LockDrift{Name: "gh-jj", Declared: "0.4.0", Locked: "0.3.1"}, drifts[1])
}

func TestDrift_MissingLockfile(t *testing.T) {
	root := writeProject(t, map[string]string{"Cargo.toml": memberManifest})
	drifts, err := Drift(root)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, LockFile, drifts[0].Name)
}

func TestDrift_WorkspaceInheritance(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Cargo.toml": `[workspace]
members = ["crates/app"]

[workspace.dependencies]
toml = "0.9"
`,
		"crates/app/Cargo.toml": `[package]
name = "app"
version = "0.1.0"

[dependencies]
toml = { workspace = true }
`,
		"Cargo.lock": `version = 3

[[package]]
name = "app"
version = "0.1.0"

[[package]]
name = "toml"
version = "0.8.19"
source = "registry+https://github.com/rust-lang/crates.io-index"
`,
	})

	drifts, err := Drift(root)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "toml", drifts[0].Name)
	assert.Equal(t, "0.9", drifts[0].Declared)
}

func TestCargoConstraint(t *testing.T) {
	tests := []struct {
		req     string
		want    string
		version string
		ok      bool
	}{
		{"1.2", "^1.2", "1.9.0", true},
		{"1.2", "^1.2", "2.0.0", false},
		{"0.41", "^0.41", "0.41.9", true},
		{"0.41", "^0.41", "0.42.0", false},
		{"=1.0.5", "=1.0.5", "1.0.5", true},
		{"~1.2", "~1.2", "1.2.9", true},
		{">=1, <2", ">=1, <2", "1.5.0", true},
		{"*", "*", "7.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			assert.Equal(t, tt.want, CargoConstraint(tt.req))
			assert.Equal(t, tt.ok, anySatisfies(tt.req, []string{tt.version}))
		})
	}
}

func TestFingerprint_StableAcrossSourceEdits(t *testing.T) {
	root := project(t)
	first, err := Fingerprint(root)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	// editing code does not change the dependency graph
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte("fn main() { todo!() }\n"), 0o644))
	again, err := Fingerprint(root)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// neither does bumping the project's own version in manifest and lock
	manifest := strings.Replace(rootManifest, `version = "0.3.1"`, `version = "0.3.2"`, 1)
	lock := strings.Replace(lockfile, "name = \"gh-jj\"\nversion = \"0.3.1\"", "name = \"gh-jj\"\nversion = \"0.3.2\"", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.lock"), []byte(lock), 0o644))
	bumped, err := Fingerprint(root)
	require.NoError(t, err)
	assert.Equal(t, first, bumped)
}

func TestFingerprint_ChangesWithDependencies(t *testing.T) {
	root := project(t)
	first, err := Fingerprint(root)
	require.NoError(t, err)

	lock := strings.Replace(lockfile, `version = "4.5.20"`, `version = "4.5.21"`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.lock"), []byte(lock), 0o644))
	relocked, err := Fingerprint(root)
	require.NoError(t, err)
	assert.NotEqual(t, first, relocked)

	require.NoError(t, os.WriteFile(filepath.Join(root, "rust-toolchain.toml"), []byte("[toolchain]\nchannel = \"1.82\"\n"), 0o644))
	pinned, err := Fingerprint(root)
	require.NoError(t, err)
	assert.NotEqual(t, relocked, pinned)
}
