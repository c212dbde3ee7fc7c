// Package inject wires shared services and cross-cell references into
// cells at construction time.
//
// There is no auto-injection magic: a cell factory receives the Injector
// and asks for the services it needs by role (Bus, Proc, Logger) or for
// another cell by name. Resolution is eager — everything a cell depends
// on is resolved while it is being constructed, so configuration errors
// surface at startup, not mid-request. Requesting a cell that is itself
// being constructed fails fast with CircularDependencyError instead of
// recursing.
package inject

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/errors"
	"github.com/xiaojinao/cellium/pkg/cellium/event"
	"github.com/xiaojinao/cellium/pkg/cellium/proc"
	"github.com/xiaojinao/cellium/pkg/cellium/registry"
)

// Factory constructs one cell, pulling its dependencies from the Injector.
type Factory func(in *Injector) (cell.Cell, error)

// Injector resolves service bindings for cells under construction.
//
// It is used single-goroutine during startup loading; the shared
// singletons it hands out are long-lived and outlive every cell.
type Injector struct {
	bus    *event.Bus
	proc   *proc.Manager
	logger *slog.Logger

	cells     *registry.Cells
	factories *registry.Registry[string, Factory]

	// construction stack for cycle detection
	building []string
	inFlight map[string]bool
}

// New creates an injector over the given singletons.
func New(bus *event.Bus, pm *proc.Manager, logger *slog.Logger, cells *registry.Cells) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{
		bus:       bus,
		proc:      pm,
		logger:    logger,
		cells:     cells,
		factories: registry.New[string, Factory](),
		inFlight:  make(map[string]bool),
	}
}

// Bus returns the shared event bus.
func (in *Injector) Bus() *event.Bus {
	return in.bus
}

// Proc returns the shared process manager. May be nil if the host runs
// without worker offload.
func (in *Injector) Proc() *proc.Manager {
	return in.proc
}

// Logger returns the shared logger, never nil.
func (in *Injector) Logger() *slog.Logger {
	return in.logger
}

// RegisterFactory binds a cell factory to its configuration identifier.
func (in *Injector) RegisterFactory(id string, f Factory) {
	in.factories.Register(id, f)
}

// HasFactory returns true if a factory is bound to id.
func (in *Injector) HasFactory(id string) bool {
	return in.factories.Has(id)
}

// Cell resolves a cross-cell reference. An already-loaded cell is
// returned directly; a not-yet-loaded cell with a known factory is
// constructed on the spot (and registered), so declaration order in the
// configuration does not constrain dependency order. A reference back
// into the construction stack fails with CircularDependencyError.
func (in *Injector) Cell(name string) (cell.Cell, error) {
	if c, err := in.cells.Resolve(name); err == nil {
		return c, nil
	}

	if in.inFlight[name] {
		chain := append(append([]string{}, in.building...), name)
		return nil, &errors.CircularDependencyError{Chain: chain}
	}

	if !in.factories.Has(name) {
		return nil, &errors.CellNotFoundError{Cell: name}
	}

	return in.construct(name)
}

// construct runs a factory with cycle tracking and registers the result.
func (in *Injector) construct(id string) (cell.Cell, error) {
	factory, ok := in.factories.Get(id)
	if !ok {
		return nil, &errors.CellNotFoundError{Cell: id}
	}

	in.inFlight[id] = true
	in.building = append(in.building, id)
	defer func() {
		delete(in.inFlight, id)
		in.building = in.building[:len(in.building)-1]
	}()

	c, err := factory(in)
	if err != nil {
		return nil, &errors.ConstructionError{Cell: id, Err: err}
	}
	if c.Name() != id {
		return nil, &errors.ConstructionError{
			Cell: id,
			Err:  fmt.Errorf("factory produced cell named %q", c.Name()),
		}
	}

	if err := in.cells.Register(c); err != nil {
		return nil, err
	}
	in.wireEvents(c)

	return c, nil
}

// wireEvents forwards a cell's declared event handlers to the bus under
// the cell's identity, so teardown can drop them all at once.
func (in *Injector) wireEvents(c cell.Cell) {
	for name, fn := range c.Events() {
		in.bus.SubscribeAs(c.Name(), name, event.Handler(fn))
	}
}

// Teardown invokes the optional teardown hook of every cell in reverse
// load order and drops their subscriptions. Hook errors are logged, not
// propagated.
func (in *Injector) Teardown(ctx context.Context) {
	for _, c := range in.cells.ReverseOrder() {
		in.bus.DropOwner(c.Name())

		td, ok := c.(cell.Teardowner)
		if !ok {
			continue
		}
		if err := td.Teardown(ctx); err != nil {
			in.logger.Warn("cell teardown failed",
				slog.String("cell", c.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}
