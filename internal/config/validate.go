package config

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/b-harvest/relbuild/internal/domain/platform"
)

// Validate validates the EffectiveConfig values against allowed ranges and types.
func (c *EffectiveConfig) Validate() error {
	if strings.TrimSpace(c.SourceDir.Value) == "" {
		return fmt.Errorf("invalid source_dir: must not be empty")
	}
	if strings.TrimSpace(c.OutputDir.Value) == "" {
		return fmt.Errorf("invalid output_dir: must not be empty")
	}
	if c.Cargo.Value == "" {
		return fmt.Errorf("invalid cargo: must not be empty")
	}
	if err := validateJobs(c.Jobs.Value); err != nil {
		return err
	}
	if err := validatePlatform(c.Platform.Value); err != nil {
		return err
	}
	if err := validateCacheTTL(c.CacheTTL.Value); err != nil {
		return err
	}
	return validateInclude(c.Include.Value)
}

// ValidateFileConfig validates the FileConfig values before merging.
// This is called when loading the config file to provide early error messages.
func ValidateFileConfig(cfg *FileConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.Jobs != nil {
		if err := validateJobs(*cfg.Jobs); err != nil {
			return fmt.Errorf("%w in config file", err)
		}
	}
	if cfg.Platform != nil {
		if err := validatePlatform(*cfg.Platform); err != nil {
			return fmt.Errorf("%w in config file", err)
		}
	}
	if cfg.CacheTTL != nil {
		if err := validateCacheTTL(*cfg.CacheTTL); err != nil {
			return fmt.Errorf("%w in config file", err)
		}
	}
	if err := validateInclude(cfg.Include); err != nil {
		return fmt.Errorf("%w in config file", err)
	}
	return nil
}

func validateJobs(jobs int) error {
	if jobs < 0 {
		return fmt.Errorf("invalid jobs: %d (must be 0 for unlimited, or positive)", jobs)
	}
	return nil
}

func validatePlatform(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := platform.Lookup(name); !ok {
		return fmt.Errorf("invalid platform: %s (known: %s)", name, strings.Join(platform.Names(), ", "))
	}
	return nil
}

func validateCacheTTL(ttl string) error {
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return fmt.Errorf("invalid cache_ttl: %q (expected a duration such as \"168h\")", ttl)
	}
	if d < 0 {
		return fmt.Errorf("invalid cache_ttl: %q (must not be negative)", ttl)
	}
	return nil
}

func validateInclude(patterns []string) error {
	for _, p := range patterns {
		if p == "" {
			return fmt.Errorf("invalid include pattern: empty")
		}
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid include pattern %q: %v", p, err)
		}
	}
	return nil
}
