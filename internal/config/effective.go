package config

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/domain/platform"
	"github.com/b-harvest/relbuild/internal/infrastructure/toolchain"
)

// Environment variables read by the command layer.
const (
	EnvHome           = "RELBUILD_HOME"
	EnvNoColor        = "NO_COLOR"
	EnvCompilerTriple = "COMPILER_TRIPLE"
	EnvPlatformTag    = "PLATFORM_TAG"
)

// Flag names bound to EffectiveConfig fields.
const (
	FlagHome           = "home"
	FlagNoColor        = "no-color"
	FlagVerbose        = "verbose"
	FlagJSON           = "json"
	FlagTriple         = "triple"
	FlagTag            = "tag"
	FlagPlatform       = "platform"
	FlagSource         = "source"
	FlagOutput         = "output"
	FlagStrictPlatform = "strict-platform"
	FlagRequireChecks  = "require-checks"
	FlagJobs           = "jobs"
	FlagInclude        = "include"
	FlagCargo          = "cargo"
)

const (
	DefaultJobs     = 4
	DefaultCacheTTL = "168h"
)

// EffectiveConfig represents the final merged configuration after applying priority chain.
type EffectiveConfig struct {
	// Global settings
	Home    StringValue
	NoColor BoolValue
	Verbose BoolValue
	JSON    BoolValue

	// Target selection
	CompilerTriple StringValue
	PlatformTag    StringValue
	Platform       StringValue

	// Build settings
	SourceDir      StringValue
	OutputDir      StringValue
	StrictPlatform BoolValue
	RequireChecks  BoolValue
	Jobs           IntValue
	Include        StringSliceValue
	Cargo          StringValue

	CacheTTL StringValue

	// Metadata
	ConfigFilePath string // Path of the highest priority config file loaded (empty if none)
}

// NewEffectiveConfig creates a new EffectiveConfig with default values.
func NewEffectiveConfig(defaultHomeDir string) *EffectiveConfig {
	return &EffectiveConfig{
		Home:           NewStringValue(defaultHomeDir),
		NoColor:        NewBoolValue(false),
		Verbose:        NewBoolValue(false),
		JSON:           NewBoolValue(false),
		CompilerTriple: NewStringValue(platform.DefaultTriple),
		PlatformTag:    NewStringValue(platform.DefaultTag),
		Platform:       NewStringValue(""),
		SourceDir:      NewStringValue("."),
		OutputDir:      NewStringValue("release"),
		StrictPlatform: NewBoolValue(false),
		RequireChecks:  NewBoolValue(false),
		Jobs:           NewIntValue(DefaultJobs),
		Include:        NewStringSliceValue(nil),
		Cargo:          NewStringValue(toolchain.DefaultCargo),
		CacheTTL:       NewStringValue(DefaultCacheTTL),
	}
}

// Merge applies the config file and environment layers underneath whatever
// flags cmd has already written into c. Flags should be bound directly to
// the Value fields so that an unchanged flag still carries its default.
func (c *EffectiveConfig) Merge(cmd *cobra.Command, file *FileConfig, getenv func(string) string) {
	if file == nil {
		file = &FileConfig{}
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	mergeString(cmd, FlagHome, &c.Home, file.Home, getenv(EnvHome))
	mergeBool(cmd, FlagNoColor, &c.NoColor, file.NoColor, getenv(EnvNoColor) != "")
	mergeBool(cmd, FlagVerbose, &c.Verbose, file.Verbose, false)
	mergeBool(cmd, FlagJSON, &c.JSON, file.JSON, false)

	mergeString(cmd, FlagTriple, &c.CompilerTriple, file.CompilerTriple, getenv(EnvCompilerTriple))
	mergeString(cmd, FlagTag, &c.PlatformTag, file.PlatformTag, getenv(EnvPlatformTag))
	mergeString(cmd, FlagPlatform, &c.Platform, file.Platform, "")

	mergeString(cmd, FlagSource, &c.SourceDir, file.SourceDir, "")
	mergeString(cmd, FlagOutput, &c.OutputDir, file.OutputDir, "")
	mergeBool(cmd, FlagStrictPlatform, &c.StrictPlatform, file.StrictPlatform, false)
	mergeBool(cmd, FlagRequireChecks, &c.RequireChecks, file.RequireChecks, false)
	c.Jobs.Value, c.Jobs.Source = ApplyIntConfig(cmd, FlagJobs, c.Jobs.Value, file.Jobs)
	c.Include.Value, c.Include.Source = ApplyStringSliceConfig(cmd, FlagInclude, c.Include.Value, file.Include)
	mergeString(cmd, FlagCargo, &c.Cargo, file.Cargo, "")

	mergeString(cmd, "", &c.CacheTTL, file.CacheTTL, "")
}

func mergeString(cmd *cobra.Command, flag string, v *StringValue, fileValue *string, env string) {
	v.Value, v.Source = ApplyStringConfig(cmd, flag, v.Value, fileValue)
	v.Value, v.Source = ApplyEnvString(cmd, flag, v.Value, env, v.Source)
}

func mergeBool(cmd *cobra.Command, flag string, v *BoolValue, fileValue *bool, envSet bool) {
	v.Value, v.Source = ApplyBoolConfig(cmd, flag, v.Value, fileValue)
	v.Value, v.Source = ApplyEnvBool(cmd, flag, v.Value, envSet, v.Source)
}

// Request resolves the build target. A named platform supplies both fields;
// an explicitly set triple or tag still replaces its half verbatim.
func (c *EffectiveConfig) Request() (platform.Request, error) {
	var triple, tag string
	if c.CompilerTriple.Source != SourceDefault {
		triple = c.CompilerTriple.Value
	}
	if c.PlatformTag.Source != SourceDefault {
		tag = c.PlatformTag.Value
	}

	if c.Platform.Value == "" {
		return platform.Resolve(triple, tag), nil
	}

	p, ok := platform.Lookup(c.Platform.Value)
	if !ok {
		return platform.Request{}, fmt.Errorf("unknown platform %q (known: %s)",
			c.Platform.Value, strings.Join(platform.Names(), ", "))
	}
	req := p.Request()
	if triple != "" {
		req.CompilerTriple = triple
	}
	if tag != "" {
		req.ReleaseTag = tag
	}
	return req, nil
}

// CacheAge returns cache_ttl as a duration.
func (c *EffectiveConfig) CacheAge() (time.Duration, error) {
	d, err := time.ParseDuration(c.CacheTTL.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid cache_ttl %q: %w", c.CacheTTL.Value, err)
	}
	return d, nil
}

// ToTable writes the configuration as a formatted table.
func (c *EffectiveConfig) ToTable(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	fmt.Fprintln(tw, "---\t-----\t------")
	for _, row := range c.rows() {
		fmt.Fprintf(tw, "%s\t%v\t%s\n", row.key, row.value, row.source)
	}
	tw.Flush()
}

// ToMap returns key/value pairs for structured output.
func (c *EffectiveConfig) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, 16)
	for _, row := range c.rows() {
		m[row.key] = row.value
	}
	m["platform"] = c.Platform.Value
	m["include"] = c.Include.Value
	m["config_file"] = c.ConfigFilePath
	return m
}

type configRow struct {
	key    string
	value  interface{}
	source ConfigSource
}

func (c *EffectiveConfig) rows() []configRow {
	include := "(none)"
	if len(c.Include.Value) > 0 {
		include = strings.Join(c.Include.Value, ",")
	}
	platformName := c.Platform.Value
	if platformName == "" {
		platformName = "(none)"
	}
	return []configRow{
		{"home", c.Home.Value, c.Home.Source},
		{"no_color", c.NoColor.Value, c.NoColor.Source},
		{"verbose", c.Verbose.Value, c.Verbose.Source},
		{"json", c.JSON.Value, c.JSON.Source},
		{"compiler_triple", c.CompilerTriple.Value, c.CompilerTriple.Source},
		{"platform_tag", c.PlatformTag.Value, c.PlatformTag.Source},
		{"platform", platformName, c.Platform.Source},
		{"source_dir", c.SourceDir.Value, c.SourceDir.Source},
		{"output_dir", c.OutputDir.Value, c.OutputDir.Source},
		{"strict_platform", c.StrictPlatform.Value, c.StrictPlatform.Source},
		{"require_checks", c.RequireChecks.Value, c.RequireChecks.Source},
		{"jobs", c.Jobs.Value, c.Jobs.Source},
		{"include", include, c.Include.Source},
		{"cargo", c.Cargo.Value, c.Cargo.Source},
		{"cache_ttl", c.CacheTTL.Value, c.CacheTTL.Source},
	}
}
