package di

import (
	"github.com/b-harvest/relbuild/internal/application/ports"
	infracache "github.com/b-harvest/relbuild/internal/infrastructure/cache"
	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
	"github.com/b-harvest/relbuild/internal/infrastructure/filesystem"
	"github.com/b-harvest/relbuild/internal/infrastructure/manifest"
	"github.com/b-harvest/relbuild/internal/infrastructure/source"
	"github.com/b-harvest/relbuild/internal/infrastructure/tomlutil"
	"github.com/b-harvest/relbuild/internal/infrastructure/toolchain"
	"github.com/b-harvest/relbuild/internal/paths"
)

// InfrastructureFactory creates infrastructure implementations.
type InfrastructureFactory struct {
	homeDir  string
	cargo    string
	cargoEnv []string
	logger   ports.Logger
}

// NewInfrastructureFactory creates a new infrastructure factory.
func NewInfrastructureFactory(homeDir string, logger ports.Logger) *InfrastructureFactory {
	return &InfrastructureFactory{
		homeDir: homeDir,
		cargo:   toolchain.DefaultCargo,
		logger:  logger,
	}
}

// WithCargo sets the cargo binary and extra environment for every invocation.
func (f *InfrastructureFactory) WithCargo(binary string, env ...string) *InfrastructureFactory {
	if binary != "" {
		f.cargo = binary
	}
	f.cargoEnv = env
	return f
}

// CreateExecutor creates the subprocess executor.
func (f *InfrastructureFactory) CreateExecutor() executor.CommandExecutor {
	return executor.NewOSCommandExecutor()
}

// CreateToolchain creates the cargo-backed toolchain.
func (f *InfrastructureFactory) CreateToolchain(exec executor.CommandExecutor) ports.Toolchain {
	if exec == nil {
		exec = f.CreateExecutor()
	}
	return toolchain.NewCargo(exec, f.logger, f.cargo, f.cargoEnv...)
}

// CreateFileSystem creates the OS filesystem adapter.
func (f *InfrastructureFactory) CreateFileSystem() ports.FileSystem {
	return filesystem.NewOSFileSystem()
}

// CreateDependencyStore creates the store under {home}/cache/deps.
func (f *InfrastructureFactory) CreateDependencyStore() *infracache.DependencyStore {
	return infracache.NewDependencyStore(paths.DepsCachePath(f.homeDir), f.logger)
}

// CreateSnapshotter creates the source snapshotter.
func (f *InfrastructureFactory) CreateSnapshotter() ports.Snapshotter {
	return source.NewSnapshotter(f.logger)
}

// CreateDependencyGraph creates the Cargo manifest inspector.
func (f *InfrastructureFactory) CreateDependencyGraph() ports.DependencyGraph {
	return manifest.NewInspector()
}

// CreateConfigChecker creates the TOML layout checker.
func (f *InfrastructureFactory) CreateConfigChecker() ports.ConfigFormatChecker {
	return tomlutil.NewChecker()
}
