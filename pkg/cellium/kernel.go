package cellium

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/config"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/inject"
	"github.com/xiaojinao/cellium/pkg/cellium/proc"
	"github.com/xiaojinao/cellium/pkg/cellium/registry"
	"github.com/xiaojinao/cellium/pkg/cellium/router"
)

// Kernel assembles the dispatch pipeline: router over a loaded cell
// registry, backed by the shared event bus and process manager
// singletons. Construct with New, serve messages with Handle, release
// everything with Shutdown.
type Kernel struct {
	settings config.Settings
	logger   *slog.Logger

	bus      *event.Bus
	proc     *proc.Manager
	cells    *registry.Cells
	injector *inject.Injector
	router   *router.Router

	deadLetter event.Store
	ownsStore  bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// New constructs and starts a kernel.
//
// Construction order: event bus, process manager, injector, then cells in
// configuration order, then the router. Under strict loading any cell
// construction failure tears the partially built kernel back down and is
// returned to the caller.
func New(opts ...Option) (*Kernel, error) {
	kc := defaultKernelConfig()
	for _, opt := range opts {
		opt(&kc)
	}

	store, ownsStore, err := openDeadLetter(kc)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(event.BusConfig{
		DeadLetter: store,
		Logger:     kc.logger,
	})

	manager, err := proc.NewManager(proc.ManagerConfig{
		Workers:        kc.settings.Workers,
		QueueSize:      kc.settings.QueueSize,
		DefaultTimeout: kc.settings.DefaultTimeout,
		Command:        kc.workerCmd,
		Logger:         kc.logger,
		Spans:          kc.spans,
		OnResult: func(task string, duration time.Duration, err error) {
			kc.metrics.RecordSubmit(context.Background(), task, duration, err)
		},
	})
	if err != nil {
		bus.Close()
		if ownsStore && store != nil {
			store.Close()
		}
		return nil, err
	}

	cells := registry.NewCells()
	injector := inject.New(bus, manager, kc.logger, cells)
	for _, b := range kc.factories {
		injector.RegisterFactory(b.id, b.factory)
	}

	policy := inject.Lenient
	if kc.settings.StrictLoad {
		policy = inject.Strict
	}

	k := &Kernel{
		settings:   kc.settings,
		logger:     kc.logger,
		bus:        bus,
		proc:       manager,
		cells:      cells,
		injector:   injector,
		deadLetter: store,
		ownsStore:  ownsStore,
	}

	if err := injector.Load(kc.settings.Cells, policy); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		k.Shutdown(ctx)
		return nil, err
	}

	k.router = router.New(router.Config{
		Cells:   cells,
		Bus:     bus,
		Logger:  kc.logger,
		Metrics: kc.metrics,
		Spans:   kc.spans,
	})
	return k, nil
}

// openDeadLetter picks the failed-delivery store: an explicit store wins,
// then a configured SQLite path, then a bounded in-memory store.
func openDeadLetter(kc kernelConfig) (event.Store, bool, error) {
	if kc.deadLetter != nil {
		return kc.deadLetter, true, nil
	}
	if kc.settings.DeadLetterPath != "" {
		store, err := event.NewSQLiteStore(kc.settings.DeadLetterPath)
		if err != nil {
			return nil, false, err
		}
		return store, true, nil
	}
	return event.NewMemoryStore(event.DefaultMemoryStoreSize), true, nil
}

// Handle processes one inbound protocol string and returns the reply.
// Safe for concurrent use.
func (k *Kernel) Handle(ctx context.Context, message string) string {
	return k.router.Handle(ctx, message)
}

// Bus returns the shared event bus.
func (k *Kernel) Bus() *event.Bus {
	return k.bus
}

// Proc returns the shared process manager.
func (k *Kernel) Proc() *proc.Manager {
	return k.proc
}

// Cells returns the loaded cell registry.
func (k *Kernel) Cells() *registry.Cells {
	return k.cells
}

// DeadLetter returns the failed-delivery store.
func (k *Kernel) DeadLetter() event.Store {
	return k.deadLetter
}

// Describe returns the command catalog of a loaded cell as
// command name -> description.
func (k *Kernel) Describe(cellName string) (map[string]string, error) {
	c, err := k.cells.Resolve(cellName)
	if err != nil {
		return nil, err
	}
	return cell.Describe(c), nil
}

// Shutdown releases the kernel: stop accepting work unit submissions and
// drain or force-terminate workers within ctx's deadline, tear down cells
// in reverse load order, then close the bus and the dead letter store.
// Safe to call more than once; later calls return the first result.
func (k *Kernel) Shutdown(ctx context.Context) error {
	k.shutdownOnce.Do(func() {
		var errs []error

		if k.proc != nil {
			if err := k.proc.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		k.injector.Teardown(ctx)

		if err := k.bus.Close(); err != nil {
			errs = append(errs, err)
		}
		if k.ownsStore && k.deadLetter != nil {
			if err := k.deadLetter.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		k.shutdownErr = stderrors.Join(errs...)
		k.logger.Info("kernel shut down")
	})
	return k.shutdownErr
}
