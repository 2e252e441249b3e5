package config

// FileConfig represents the raw contents of config.toml / relbuild.toml.
// All fields are pointers to distinguish "not set" from "set to zero/false".
type FileConfig struct {
	// Global settings
	Home    *string `toml:"home"`
	NoColor *bool   `toml:"no_color"`
	Verbose *bool   `toml:"verbose"`
	JSON    *bool   `toml:"json"`

	// Target selection
	CompilerTriple *string `toml:"compiler_triple"`
	PlatformTag    *string `toml:"platform_tag"`
	Platform       *string `toml:"platform"` // catalog name, sets both fields

	// Build settings
	SourceDir      *string  `toml:"source_dir"`
	OutputDir      *string  `toml:"output_dir"`
	StrictPlatform *bool    `toml:"strict_platform"`
	RequireChecks  *bool    `toml:"require_checks"`
	Jobs           *int     `toml:"jobs"`
	Include        []string `toml:"include"` // extra snapshot glob patterns
	Cargo          *string  `toml:"cargo"`   // cargo binary

	// Dependency store settings
	CacheTTL *string `toml:"cache_ttl"` // default age for cache clean
}

// IsEmpty returns true if no configuration values are set.
func (f *FileConfig) IsEmpty() bool {
	return f.Home == nil &&
		f.NoColor == nil &&
		f.Verbose == nil &&
		f.JSON == nil &&
		f.CompilerTriple == nil &&
		f.PlatformTag == nil &&
		f.Platform == nil &&
		f.SourceDir == nil &&
		f.OutputDir == nil &&
		f.StrictPlatform == nil &&
		f.RequireChecks == nil &&
		f.Jobs == nil &&
		f.Include == nil &&
		f.Cargo == nil &&
		f.CacheTTL == nil
}
