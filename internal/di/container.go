// Package di wires relbuild's infrastructure into its use cases.
package di

import (
	"sync"

	"github.com/b-harvest/relbuild/internal/application/build"
	"github.com/b-harvest/relbuild/internal/application/gate"
	"github.com/b-harvest/relbuild/internal/application/pipeline"
	"github.com/b-harvest/relbuild/internal/application/ports"
	apprelease "github.com/b-harvest/relbuild/internal/application/release"
	"github.com/b-harvest/relbuild/internal/infrastructure/executor"
	"github.com/b-harvest/relbuild/internal/output"
	"github.com/b-harvest/relbuild/internal/prereq"
)

// Container holds all dependencies and provides lazy initialization of use cases.
// It is safe for concurrent use.
type Container struct {
	mu sync.RWMutex

	logger   *output.Logger
	config   *Config
	progress ports.ProgressReporter

	// Infrastructure
	executor    executor.CommandExecutor
	toolchain   ports.Toolchain
	fs          ports.FileSystem
	store       ports.DependencyStore
	snapshotter ports.Snapshotter
	graph       ports.DependencyGraph
	checker     ports.ConfigFormatChecker

	// Lazy-initialized UseCases
	depsUC      *build.BuildDependenciesUseCase
	projectUC   *build.BuildProjectUseCase
	validateUC  *gate.ValidateUseCase
	packageUC   *apprelease.PackageUseCase
	cacheListUC *build.CacheListUseCase
	cacheInfoUC *build.CacheInfoUseCase
	cacheClean  *build.CacheCleanUseCase
	pipeline    *pipeline.Pipeline
}

// Config holds configuration for the container.
type Config struct {
	HomeDir  string
	Cargo    string
	CargoEnv []string
	Verbose  bool
	NoColor  bool
	JSONMode bool
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger.
func WithLogger(logger *output.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithConfig sets the container configuration.
func WithConfig(config *Config) Option {
	return func(c *Container) {
		c.config = config
	}
}

// WithExecutor sets the subprocess executor used by the default toolchain.
func WithExecutor(exec executor.CommandExecutor) Option {
	return func(c *Container) {
		c.executor = exec
	}
}

// WithToolchain replaces the cargo toolchain.
func WithToolchain(tc ports.Toolchain) Option {
	return func(c *Container) {
		c.toolchain = tc
	}
}

// WithFileSystem replaces the filesystem adapter.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(c *Container) {
		c.fs = fs
	}
}

// WithDependencyStore replaces the dependency store.
func WithDependencyStore(store ports.DependencyStore) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithProgress sets the reporter for pipeline stages and gate checks.
func WithProgress(progress ports.ProgressReporter) Option {
	return func(c *Container) {
		c.progress = progress
	}
}

// New creates a new dependency injection container with the given options.
// Infrastructure not supplied through options is created by the factory.
func New(opts ...Option) *Container {
	c := &Container{
		logger:   output.NewLogger(),
		config:   &Config{},
		progress: ports.NilProgressReporter,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.SetVerbose(c.config.Verbose)
	c.logger.SetNoColor(c.config.NoColor)
	c.logger.SetJSONMode(c.config.JSONMode)

	factory := NewInfrastructureFactory(c.config.HomeDir, c.logger).
		WithCargo(c.config.Cargo, c.config.CargoEnv...)
	if c.executor == nil {
		c.executor = factory.CreateExecutor()
	}
	if c.toolchain == nil {
		c.toolchain = factory.CreateToolchain(c.executor)
	}
	if c.fs == nil {
		c.fs = factory.CreateFileSystem()
	}
	if c.store == nil {
		c.store = factory.CreateDependencyStore()
	}
	c.snapshotter = factory.CreateSnapshotter()
	c.graph = factory.CreateDependencyGraph()
	c.checker = factory.CreateConfigChecker()
	return c
}

// Logger returns the logger instance.
func (c *Container) Logger() *output.Logger {
	return c.logger
}

// Config returns the configuration.
func (c *Container) Config() *Config {
	return c.config
}

// DependencyStore returns the dependency store.
func (c *Container) DependencyStore() ports.DependencyStore {
	return c.store
}

// PrereqChecker returns a toolchain prerequisite checker bound to the
// container's executor and cargo binary.
func (c *Container) PrereqChecker() *prereq.Checker {
	return prereq.NewChecker(c.executor, c.config.Cargo)
}

// BuildDependenciesUseCase returns the dependency cache builder.
func (c *Container) BuildDependenciesUseCase() *build.BuildDependenciesUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depsLocked()
}

func (c *Container) depsLocked() *build.BuildDependenciesUseCase {
	if c.depsUC == nil {
		c.depsUC = build.NewBuildDependenciesUseCase(c.toolchain, c.store, c.graph, c.logger)
	}
	return c.depsUC
}

// BuildProjectUseCase returns the project builder.
func (c *Container) BuildProjectUseCase() *build.BuildProjectUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectLocked()
}

func (c *Container) projectLocked() *build.BuildProjectUseCase {
	if c.projectUC == nil {
		c.projectUC = build.NewBuildProjectUseCase(c.toolchain, c.graph, c.fs, c.logger)
	}
	return c.projectUC
}

// ValidateUseCase returns the validation gate with the default check set.
func (c *Container) ValidateUseCase() *gate.ValidateUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Container) validateLocked() *gate.ValidateUseCase {
	if c.validateUC == nil {
		checks := gate.DefaultChecks(c.projectLocked(), c.toolchain, c.fs, c.checker)
		c.validateUC = gate.NewValidateUseCase(c.depsLocked(), checks, c.logger).
			WithProgress(c.progress)
	}
	return c.validateUC
}

// PackageUseCase returns the release packager.
func (c *Container) PackageUseCase() *apprelease.PackageUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.packageLocked()
}

func (c *Container) packageLocked() *apprelease.PackageUseCase {
	if c.packageUC == nil {
		c.packageUC = apprelease.NewPackageUseCase(c.fs, c.logger)
	}
	return c.packageUC
}

// Pipeline returns the release pipeline.
func (c *Container) Pipeline() *pipeline.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipeline == nil {
		c.pipeline = pipeline.New(
			c.snapshotter,
			c.depsLocked(),
			c.projectLocked(),
			c.validateLocked(),
			c.packageLocked(),
			c.fs,
			c.logger,
		).WithProgress(c.progress)
	}
	return c.pipeline
}

// CacheListUseCase returns the cache list use case.
func (c *Container) CacheListUseCase() *build.CacheListUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheListUC == nil {
		c.cacheListUC = build.NewCacheListUseCase(c.store, c.logger)
	}
	return c.cacheListUC
}

// CacheInfoUseCase returns the cache info use case.
func (c *Container) CacheInfoUseCase() *build.CacheInfoUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheInfoUC == nil {
		c.cacheInfoUC = build.NewCacheInfoUseCase(c.store)
	}
	return c.cacheInfoUC
}

// CacheCleanUseCase returns the cache clean use case.
func (c *Container) CacheCleanUseCase() *build.CacheCleanUseCase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheClean == nil {
		c.cacheClean = build.NewCacheCleanUseCase(c.store, c.logger)
	}
	return c.cacheClean
}
