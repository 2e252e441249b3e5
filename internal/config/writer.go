package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/b-harvest/relbuild/internal/domain/platform"
	"github.com/b-harvest/relbuild/internal/paths"
)

// ConfigWriter writes a starter relbuild.toml into a project directory.
type ConfigWriter struct {
	dir string
}

// NewConfigWriter creates a new ConfigWriter for the given directory.
func NewConfigWriter(dir string) *ConfigWriter {
	return &ConfigWriter{dir: dir}
}

// Path returns the full path to relbuild.toml.
func (w *ConfigWriter) Path() string {
	return filepath.Join(w.dir, paths.ProjectConfigFile)
}

// Exists returns true if relbuild.toml already exists.
func (w *ConfigWriter) Exists() bool {
	return fileExists(w.Path())
}

// Write saves cfg to relbuild.toml. Keys left nil are written commented out
// with their default value.
func (w *ConfigWriter) Write(cfg *FileConfig) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.dir, err)
	}
	if err := os.WriteFile(w.Path(), []byte(Render(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Render produces the commented TOML document for cfg. The result is in
// canonical layout so the config-format check accepts it.
func Render(cfg *FileConfig) string {
	if cfg == nil {
		cfg = &FileConfig{}
	}
	var b strings.Builder

	b.WriteString("# relbuild configuration file\n")
	b.WriteString("# Priority: default < config.toml < relbuild.toml < environment < CLI flag\n")
	b.WriteString("# Override with: --config /path/to/file.toml\n")

	section(&b, "Target (COMPILER_TRIPLE and PLATFORM_TAG override these)")
	stringKey(&b, "platform", cfg.Platform, platform.DefaultTag)
	stringKey(&b, "compiler_triple", cfg.CompilerTriple, platform.DefaultTriple)
	stringKey(&b, "platform_tag", cfg.PlatformTag, platform.DefaultTag)
	boolKey(&b, "strict_platform", cfg.StrictPlatform, false)

	section(&b, "Build")
	stringKey(&b, "source_dir", cfg.SourceDir, ".")
	stringKey(&b, "output_dir", cfg.OutputDir, paths.DefaultOutputDir)
	boolKey(&b, "require_checks", cfg.RequireChecks, false)
	intKey(&b, "jobs", cfg.Jobs, DefaultJobs)
	listKey(&b, "include", cfg.Include, []string{"README.md"})
	stringKey(&b, "cargo", cfg.Cargo, "cargo")

	section(&b, "Dependency store")
	stringKey(&b, "home", cfg.Home, "~/"+paths.DefaultHomeDirName)
	stringKey(&b, "cache_ttl", cfg.CacheTTL, DefaultCacheTTL)

	section(&b, "Output")
	boolKey(&b, "verbose", cfg.Verbose, false)
	boolKey(&b, "json", cfg.JSON, false)
	boolKey(&b, "no_color", cfg.NoColor, false)

	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n# %s\n", title)
}

func stringKey(b *strings.Builder, key string, v *string, def string) {
	if v != nil {
		fmt.Fprintf(b, "%s = %q\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %q\n", key, def)
}

func boolKey(b *strings.Builder, key string, v *bool, def bool) {
	if v != nil {
		fmt.Fprintf(b, "%s = %t\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %t\n", key, def)
}

func intKey(b *strings.Builder, key string, v *int, def int) {
	if v != nil {
		fmt.Fprintf(b, "%s = %d\n", key, *v)
		return
	}
	fmt.Fprintf(b, "# %s = %d\n", key, def)
}

func listKey(b *strings.Builder, key string, v []string, example []string) {
	if v != nil {
		fmt.Fprintf(b, "%s = %s\n", key, quoteList(v))
		return
	}
	fmt.Fprintf(b, "# %s = %s\n", key, quoteList(example))
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
