package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/application/pipeline"
	"github.com/b-harvest/relbuild/internal/config"
	"github.com/b-harvest/relbuild/internal/di"
	"github.com/b-harvest/relbuild/internal/output"
	"github.com/b-harvest/relbuild/internal/paths"
	"github.com/b-harvest/relbuild/internal/version"
)

// Global configuration state, populated by PersistentPreRunE.
var (
	cfg        *config.EffectiveConfig
	configPath string // --config

	// loadedFileConfig holds the merged config file values (empty if none).
	loadedFileConfig *config.FileConfig
)

// Command group IDs for organized help output.
const (
	GroupMain  = "main"
	GroupStore = "store"
)

func NewRootCmd() *cobra.Command {
	cfg = config.NewEffectiveConfig(paths.DefaultHomeDir())

	cmd := &cobra.Command{
		Use:   "relbuild",
		Short: "Reproducible build and release pipeline for gh-jj",
		Long: `relbuild builds release binaries of the gh-jj CLI from a Cargo project.

Third-party dependencies are compiled once per dependency graph and compiler
triple and reused across runs. Each release produces exactly one artifact,
<output>/gh-jj-<tag>.

Examples:
  # Build gh-jj for the default platform (x86_64-unknown-linux-gnu / linux-amd64)
  relbuild build

  # Cross build for 64-bit ARM
  COMPILER_TRIPLE=aarch64-unknown-linux-gnu PLATFORM_TAG=linux-arm64 relbuild build

  # Run the validation gate
  relbuild check`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&cfg.Home.Value, config.FlagHome, "H", cfg.Home.Value, "Base directory for the dependency store and run scratch space")
	f.BoolVar(&cfg.JSON.Value, config.FlagJSON, false, "Output in JSON format")
	f.BoolVar(&cfg.NoColor.Value, config.FlagNoColor, false, "Disable colored output")
	f.BoolVarP(&cfg.Verbose.Value, config.FlagVerbose, "v", false, "Enable verbose logging and stream cargo output")
	f.StringVar(&configPath, "config", "", "Path to an additional config file")

	cmd.AddGroup(&cobra.Group{ID: GroupMain, Title: "Main Commands:"})
	cmd.AddGroup(&cobra.Group{ID: GroupStore, Title: "Dependency Store Commands:"})

	buildCmd := NewBuildCmd()
	buildCmd.GroupID = GroupMain
	checkCmd := NewCheckCmd()
	checkCmd.GroupID = GroupMain
	platformsCmd := NewPlatformsCmd()
	platformsCmd.GroupID = GroupMain
	doctorCmd := NewDoctorCmd()
	doctorCmd.GroupID = GroupMain
	cacheCmd := NewCacheCmd()
	cacheCmd.GroupID = GroupStore

	cmd.AddCommand(
		buildCmd,
		checkCmd,
		platformsCmd,
		doctorCmd,
		cacheCmd,
		NewConfigCmd(),
		version.NewCmd(),
		NewCompletionCmd(),
	)

	return cmd
}

// loadConfig applies config files and the environment underneath the parsed
// flags, then configures the shared logger.
// Priority: default < config.toml < relbuild.toml < --config < env < flag
func loadConfig(cmd *cobra.Command) error {
	// The home directory decides where config.toml lives, so it is
	// resolved from flag and environment before any file is read.
	home := cfg.Home.Value
	if env := os.Getenv(config.EnvHome); env != "" && !cmd.Flags().Changed(config.FlagHome) {
		home = env
	}

	loader := config.NewConfigLoader(home, configPath, output.DefaultLogger)
	fileCfg, configFilePath, err := loader.LoadFileConfig()
	if err != nil {
		return err
	}
	loadedFileConfig = fileCfg

	cfg.Merge(cmd, fileCfg, os.Getenv)
	cfg.ConfigFilePath = configFilePath

	noColor := cfg.NoColor.Value || !output.StdoutIsTerminal()
	output.DefaultLogger.SetNoColor(noColor)
	output.DefaultLogger.SetVerbose(cfg.Verbose.Value)
	output.DefaultLogger.SetJSONMode(cfg.JSON.Value)

	if configFilePath != "" {
		output.DefaultLogger.Debug("Using config file: %s", configFilePath)
	}
	return cfg.Validate()
}

// containerOptions are appended to every container; tests use them to stub
// infrastructure.
var containerOptions []di.Option

// newContainer wires the application for the current configuration.
func newContainer(opts ...di.Option) *di.Container {
	base := []di.Option{
		di.WithLogger(output.DefaultLogger),
		di.WithConfig(&di.Config{
			HomeDir:  cfg.Home.Value,
			Cargo:    cfg.Cargo.Value,
			Verbose:  cfg.Verbose.Value,
			NoColor:  cfg.NoColor.Value || !output.StdoutIsTerminal(),
			JSONMode: cfg.JSON.Value,
		}),
	}
	base = append(base, opts...)
	return di.New(append(base, containerOptions...)...)
}

// pipelineConfig converts the effective configuration into the run
// configuration consumed by the pipeline.
func pipelineConfig() (pipeline.Config, error) {
	req, err := cfg.Request()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		HomeDir:        cfg.Home.Value,
		SourceDir:      cfg.SourceDir.Value,
		OutputDir:      cfg.OutputDir.Value,
		Request:        req,
		StrictPlatform: cfg.StrictPlatform.Value,
		RequireChecks:  cfg.RequireChecks.Value,
		Jobs:           cfg.Jobs.Value,
		Include:        cfg.Include.Value,
	}, nil
}

// addTargetFlags binds the flags shared by build and check.
func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.CompilerTriple.Value, config.FlagTriple, cfg.CompilerTriple.Value, "Compiler target triple (env COMPILER_TRIPLE)")
	f.StringVar(&cfg.PlatformTag.Value, config.FlagTag, cfg.PlatformTag.Value, "Release platform tag (env PLATFORM_TAG)")
	f.StringVar(&cfg.Platform.Value, config.FlagPlatform, cfg.Platform.Value, "Catalog platform setting both triple and tag (see 'relbuild platforms')")
	f.StringVar(&cfg.SourceDir.Value, config.FlagSource, cfg.SourceDir.Value, "Project source directory")
	f.BoolVar(&cfg.StrictPlatform.Value, config.FlagStrictPlatform, false, "Fail when triple and tag do not form a catalog pair")
	f.StringSliceVar(&cfg.Include.Value, config.FlagInclude, nil, "Extra glob patterns to include in the source snapshot")
	f.StringVar(&cfg.Cargo.Value, config.FlagCargo, cfg.Cargo.Value, "Cargo binary")

	_ = cmd.RegisterFlagCompletionFunc(config.FlagPlatform, completePlatforms)
}
