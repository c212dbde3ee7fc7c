package cellium

import (
	"log/slog"

	"github.com/xiaojinao/cellium/pkg/cellium/config"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
	"github.com/xiaojinao/cellium/pkg/cellium/observability"
)

// kernelConfig holds construction-time configuration for a Kernel.
type kernelConfig struct {
	settings   config.Settings
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	deadLetter event.Store
	workerCmd  []string
	factories  []factoryBinding
}

type factoryBinding struct {
	id      string
	factory inject.Factory
}

func defaultKernelConfig() kernelConfig {
	return kernelConfig{
		settings: config.DefaultSettings,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// Option configures kernel construction.
type Option func(*kernelConfig)

// WithSettings replaces the default kernel settings.
//
// Example:
//
//	settings := config.FromConfig(cfg)
//	kernel, err := cellium.New(cellium.WithSettings(settings))
func WithSettings(s config.Settings) Option {
	return func(c *kernelConfig) {
		c.settings = s
	}
}

// WithLogger sets the kernel logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *kernelConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFactory binds a cell factory to its configuration identifier.
// Factories for every identifier named in Settings.Cells must be bound
// before New is called.
func WithFactory(id string, f inject.Factory) Option {
	return func(c *kernelConfig) {
		c.factories = append(c.factories, factoryBinding{id: id, factory: f})
	}
}

// WithMetrics enables metrics collection on the dispatch path.
// Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *kernelConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans enables trace spans on the dispatch path.
// Default: NoopSpanManager.
func WithSpans(s observability.SpanManager) Option {
	return func(c *kernelConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithDeadLetterStore sets the store for failed event deliveries,
// overriding Settings.DeadLetterPath. The kernel closes the store on
// shutdown.
func WithDeadLetterStore(store event.Store) Option {
	return func(c *kernelConfig) {
		c.deadLetter = store
	}
}

// WithWorkerCommand sets the worker process argv. Default: re-execute
// the current binary, which is expected to check proc.IsWorkerProcess
// and call proc.RunWorker.
func WithWorkerCommand(argv ...string) Option {
	return func(c *kernelConfig) {
		c.workerCmd = argv
	}
}
