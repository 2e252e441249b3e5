package config

// ConfigSource records which layer supplied an effective value. Layers apply
// in the order listed; a later layer replaces an earlier one. The file layer
// is config.toml, relbuild.toml and --config merged into one.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceConfigFile  ConfigSource = "config file"
	SourceEnvironment ConfigSource = "environment"
	SourceFlag        ConfigSource = "flag"
)

func (s ConfigSource) String() string {
	return string(s)
}
