package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/paths"
)

// ConfigLoader is responsible for loading and merging configuration files.
type ConfigLoader struct {
	homeDir    string
	workDir    string // directory searched for relbuild.toml
	configPath string // Explicit --config path
	logger     ports.Logger
}

// NewConfigLoader creates a new ConfigLoader. logger may be nil.
func NewConfigLoader(homeDir, configPath string, logger ports.Logger) *ConfigLoader {
	return &ConfigLoader{
		homeDir:    homeDir,
		workDir:    ".",
		configPath: configPath,
		logger:     logger,
	}
}

// WithWorkDir changes where the project config file is looked up.
func (l *ConfigLoader) WithWorkDir(dir string) *ConfigLoader {
	l.workDir = dir
	return l
}

// candidates returns existing config files in increasing priority:
// ~/.relbuild/config.toml, ./relbuild.toml, then --config.
func (l *ConfigLoader) candidates() ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		files = append(files, p)
	}

	if homePath := paths.ConfigPath(l.homeDir); fileExists(homePath) {
		add(homePath)
	}
	if projectPath := filepath.Join(l.workDir, paths.ProjectConfigFile); fileExists(projectPath) {
		add(projectPath)
	}
	if l.configPath != "" {
		if !fileExists(l.configPath) {
			return nil, fmt.Errorf("config file not found: %s", l.configPath)
		}
		add(l.configPath)
	}
	return files, nil
}

// LoadFileConfig loads and parses config files, merging them in priority order.
// Later files override earlier ones key by key. Returns the merged FileConfig
// and the highest priority file that was loaded.
func (l *ConfigLoader) LoadFileConfig() (*FileConfig, string, error) {
	files, err := l.candidates()
	if err != nil {
		return nil, "", err
	}
	if len(files) == 0 {
		return &FileConfig{}, "", nil
	}

	var merged FileConfig
	var primaryFile string
	for _, configFile := range files {
		cfg, data, err := readFile(configFile)
		if err != nil {
			return nil, "", err
		}

		mergeFileConfig(&merged, cfg)
		primaryFile = configFile

		for _, key := range unknownKeys(data) {
			l.warn("Unknown config key in %s: %s", configFile, key)
		}
		if l.logger != nil {
			l.logger.Debug("Loaded config file: %s", configFile)
		}
	}

	if err := ValidateFileConfig(&merged); err != nil {
		return nil, "", fmt.Errorf("config validation failed: %w", err)
	}
	return &merged, primaryFile, nil
}

// LoadFile parses a single config file without merging or validation.
func LoadFile(path string) (*FileConfig, error) {
	cfg, _, err := readFile(path)
	return cfg, err
}

func readFile(path string) (*FileConfig, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, data, nil
}

func (l *ConfigLoader) warn(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(format, args...)
	}
}

// mergeFileConfig merges src into dst. Non-nil values in src overwrite dst.
func mergeFileConfig(dst, src *FileConfig) {
	setString := func(d **string, s *string) {
		if s != nil {
			*d = s
		}
	}
	setBool := func(d **bool, s *bool) {
		if s != nil {
			*d = s
		}
	}

	setString(&dst.Home, src.Home)
	setBool(&dst.NoColor, src.NoColor)
	setBool(&dst.Verbose, src.Verbose)
	setBool(&dst.JSON, src.JSON)
	setString(&dst.CompilerTriple, src.CompilerTriple)
	setString(&dst.PlatformTag, src.PlatformTag)
	setString(&dst.Platform, src.Platform)
	setString(&dst.SourceDir, src.SourceDir)
	setString(&dst.OutputDir, src.OutputDir)
	setBool(&dst.StrictPlatform, src.StrictPlatform)
	setBool(&dst.RequireChecks, src.RequireChecks)
	if src.Jobs != nil {
		dst.Jobs = src.Jobs
	}
	if src.Include != nil {
		dst.Include = src.Include
	}
	setString(&dst.Cargo, src.Cargo)
	setString(&dst.CacheTTL, src.CacheTTL)
}

var knownKeys = map[string]bool{
	"home":            true,
	"no_color":        true,
	"verbose":         true,
	"json":            true,
	"compiler_triple": true,
	"platform_tag":    true,
	"platform":        true,
	"source_dir":      true,
	"output_dir":      true,
	"strict_platform": true,
	"require_checks":  true,
	"jobs":            true,
	"include":         true,
	"cargo":           true,
	"cache_ttl":       true,
}

// unknownKeys returns the sorted top-level keys relbuild does not recognise.
func unknownKeys(data []byte) []string {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil // the typed parse reports the error
	}
	var unknown []string
	for key := range raw {
		if !knownKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
