// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"fmt"

	"github.com/ikolvi/quicui-core/internal/adapters/loader"
	"github.com/ikolvi/quicui-core/internal/adapters/remote"
	"github.com/ikolvi/quicui-core/internal/application/navigation"
	"github.com/ikolvi/quicui-core/internal/application/ports"
	"github.com/ikolvi/quicui-core/internal/application/syncer"
	"github.com/ikolvi/quicui-core/internal/infrastructure/config"
	"github.com/ikolvi/quicui-core/internal/infrastructure/logging"
	"github.com/ikolvi/quicui-core/internal/infrastructure/storage"
	"github.com/ikolvi/quicui-core/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central point
// for dependency injection. It manages the lifecycle of services and ensures
// proper initialization order: storage before the orchestrator, the loader
// before the navigation manager.
type Container struct {
	// Configuration
	config  *config.Config
	verbose bool // Override log level to debug when true

	// Local cache store
	store *storage.ScreenStore

	// Flow loading
	flowLoader  *loader.Loader
	flowWatcher *loader.Watcher

	// Remote data source: an in-memory remote wrapped in the offline queue.
	// A networked remote would slot in behind the same decorator.
	memoryRemote *remote.InMemoryRemote
	offlineQueue *remote.OfflineQueue

	// Application services
	navigator    *navigation.Manager
	orchestrator *syncer.Orchestrator

	// Observability
	logger *logging.Logger
	tracer *tracing.Tracer
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen store: %w", err)
	}

	if err := c.initFlowLoading(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize flow loading: %w", err)
	}

	c.initServices()

	return c, nil
}

// initObservability initializes the logging and tracing subsystems.
func (c *Container) initObservability() error {
	logLevel := logging.Level(c.config.Logging.Level)
	if c.verbose {
		logLevel = logging.LevelDebug
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logLevel
	logCfg.Format = logFormat
	c.logger = logging.New(logCfg)

	if c.config.Observability.Tracing.Enabled {
		tracingCfg := tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Observability.Tracing.ExporterType),
			OTLPEndpoint: c.config.Observability.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Observability.Tracing.ServiceName,
			Environment:  "production",
			SampleRate:   c.config.Observability.Tracing.SampleRate,
		}
		tracer, err := tracing.New(context.Background(), tracingCfg)
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// initStore opens the SQLite-backed screen store and applies migrations.
func (c *Container) initStore() error {
	store, err := storage.NewScreenStore(config.ExpandPath(c.config.Storage.Path))
	if err != nil {
		return fmt.Errorf("failed to create screen store: %w", err)
	}
	if err := store.Open(context.Background()); err != nil {
		return fmt.Errorf("failed to open screen store: %w", err)
	}
	c.store = store
	return nil
}

// initFlowLoading wires the flow definition loader and, when configured, the
// file watcher that invalidates cached definitions on change.
func (c *Container) initFlowLoading() error {
	c.flowLoader = loader.New(loader.NewFileFetcher(), c.logger)

	if !c.config.Flows.Watch {
		return nil
	}

	watcher, err := loader.NewWatcher(c.flowLoader, c.logger, loader.DefaultWatcherConfig())
	if err != nil {
		return fmt.Errorf("failed to create flow watcher: %w", err)
	}
	c.flowWatcher = watcher

	for _, locator := range c.config.Flows.Registry {
		if err := watcher.Watch(locator); err != nil {
			c.logger.Warn("failed to watch flow file", "locator", locator, "error", err)
		}
	}
	return nil
}

// initServices initializes the navigation manager and sync orchestrator.
func (c *Container) initServices() {
	c.memoryRemote = remote.NewInMemoryRemote()
	c.offlineQueue = remote.NewOfflineQueue(c.memoryRemote, c.logger)

	c.navigator = navigation.NewManager(c.flowLoader, c.logger, c.tracer)
	c.navigator.RegisterFlowConfigs(c.config.Flows.Registry)

	c.orchestrator = syncer.New(c.store, c.offlineQueue, c.logger, c.tracer, syncer.Config{
		MaxRetries:     c.config.Sync.MaxRetries,
		InitialBackoff: c.config.Sync.InitialBackoff,
		CompletedHold:  c.config.Sync.CompletedHold,
	})
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.flowWatcher != nil {
		_ = c.flowWatcher.Close()
	}

	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}

	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Store returns the local screen store.
func (c *Container) Store() ports.ScreenStorePort {
	return c.store
}

// FlowLoader returns the flow definition loader.
func (c *Container) FlowLoader() ports.FlowLoaderPort {
	return c.flowLoader
}

// FlowWatcher returns the flow file watcher.
// Returns nil when watching is not enabled.
func (c *Container) FlowWatcher() *loader.Watcher {
	return c.flowWatcher
}

// Remote returns the remote data source, wrapped in the offline queue.
func (c *Container) Remote() ports.RemoteDataSourcePort {
	return c.offlineQueue
}

// OfflineQueue returns the offline queue decorator for drain and depth checks.
func (c *Container) OfflineQueue() *remote.OfflineQueue {
	return c.offlineQueue
}

// SeedRemote exposes the backing in-memory remote so local runs and tests can
// install screen payloads for the orchestrator to fetch.
func (c *Container) SeedRemote() *remote.InMemoryRemote {
	return c.memoryRemote
}

// Navigator returns the navigation manager.
func (c *Container) Navigator() *navigation.Manager {
	return c.navigator
}

// Syncer returns the sync orchestrator.
func (c *Container) Syncer() *syncer.Orchestrator {
	return c.orchestrator
}

// Logger returns the structured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the OpenTelemetry tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}
