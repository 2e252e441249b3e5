package config

import "github.com/spf13/cobra"

// Priority for every key: default < config file < environment < flag.

// applyConfig resolves one layer of the chain. An explicitly set flag always
// wins; otherwise a present config value replaces the default.
func applyConfig[T any](cmd *cobra.Command, flagName string, current T, configValue *T) (T, ConfigSource) {
	if flagChanged(cmd, flagName) {
		return current, SourceFlag
	}
	if configValue != nil {
		return *configValue, SourceConfigFile
	}
	return current, SourceDefault
}

// flagChanged reports whether flagName was set on the command line. Flags the
// command does not define are never considered set.
func flagChanged(cmd *cobra.Command, flagName string) bool {
	if cmd == nil || flagName == "" {
		return false
	}
	return cmd.Flags().Changed(flagName)
}

// ApplyStringConfig applies a config file string value if the flag was not explicitly set.
func ApplyStringConfig(cmd *cobra.Command, flagName string, currentValue string, configValue *string) (string, ConfigSource) {
	return applyConfig(cmd, flagName, currentValue, configValue)
}

// ApplyIntConfig applies a config file int value if the flag was not explicitly set.
func ApplyIntConfig(cmd *cobra.Command, flagName string, currentValue int, configValue *int) (int, ConfigSource) {
	return applyConfig(cmd, flagName, currentValue, configValue)
}

// ApplyBoolConfig applies a config file bool value if the flag was not explicitly set.
// This keeps a default false flag from overriding a config true value.
func ApplyBoolConfig(cmd *cobra.Command, flagName string, currentValue bool, configValue *bool) (bool, ConfigSource) {
	return applyConfig(cmd, flagName, currentValue, configValue)
}

// ApplyStringSliceConfig applies a config file list if the flag was not explicitly set.
// A nil list counts as absent; an empty list in the file clears the default.
func ApplyStringSliceConfig(cmd *cobra.Command, flagName string, currentValue []string, configValue []string) ([]string, ConfigSource) {
	if configValue == nil {
		return applyConfig[[]string](cmd, flagName, currentValue, nil)
	}
	return applyConfig(cmd, flagName, currentValue, &configValue)
}

// ApplyEnvString applies an environment variable if it is set and the flag was not changed.
func ApplyEnvString(cmd *cobra.Command, flagName string, currentValue string, envValue string, currentSource ConfigSource) (string, ConfigSource) {
	if flagChanged(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if envValue != "" {
		return envValue, SourceEnvironment
	}
	return currentValue, currentSource
}

// ApplyEnvBool applies a boolean environment variable. Presence means "enable".
func ApplyEnvBool(cmd *cobra.Command, flagName string, currentValue bool, envSet bool, currentSource ConfigSource) (bool, ConfigSource) {
	if flagChanged(cmd, flagName) {
		return currentValue, SourceFlag
	}
	if envSet {
		return true, SourceEnvironment
	}
	return currentValue, currentSource
}
