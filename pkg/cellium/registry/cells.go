package registry

import (
	stderrors "errors"
	"sync"

	"github.com/xiaojinao/cellium/pkg/cellium/cell"
	"github.com/xiaojinao/cellium/pkg/cellium/errors"
)

// Cells holds every loaded cell instance by name, preserving load order
// for reverse-order teardown.
//
// The mapping is write-once at startup and read-many at dispatch: after
// Seal is called, further registration fails. Reads take the lock anyway
// so the type stays correct even if a host skips sealing.
type Cells struct {
	mu     sync.RWMutex
	cells  map[string]cell.Cell
	order  []string
	sealed bool
}

// NewCells creates an empty cell registry.
func NewCells() *Cells {
	return &Cells{
		cells: make(map[string]cell.Cell),
	}
}

// Register adds a cell under its name. A name collision fails with
// DuplicateCellError and leaves the first registration in place. Empty
// names and registration after Seal are load-time errors.
func (c *Cells) Register(unit cell.Cell) error {
	name := unit.Name()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return &errors.ConstructionError{
			Cell: name,
			Err:  errSealed,
		}
	}
	if name == "" {
		return &errors.ConstructionError{
			Cell: name,
			Err:  errEmptyName,
		}
	}
	if _, exists := c.cells[name]; exists {
		return &errors.DuplicateCellError{Cell: name}
	}

	c.cells[name] = unit
	c.order = append(c.order, name)
	return nil
}

// Resolve returns the cell registered under name, or CellNotFoundError.
func (c *Cells) Resolve(name string) (cell.Cell, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	unit, ok := c.cells[name]
	if !ok {
		return nil, &errors.CellNotFoundError{Cell: name}
	}
	return unit, nil
}

// Has returns true if a cell is registered under name.
func (c *Cells) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cells[name]
	return ok
}

// Names returns cell names in load order.
func (c *Cells) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of registered cells.
func (c *Cells) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cells)
}

// Seal marks the registry read-only. Called once after loading completes.
func (c *Cells) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// ReverseOrder returns cells in reverse load order for teardown.
func (c *Cells) ReverseOrder() []cell.Cell {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]cell.Cell, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		out = append(out, c.cells[c.order[i]])
	}
	return out
}

var (
	errSealed    = stderrors.New("registry is sealed")
	errEmptyName = stderrors.New("cell name must not be empty")
)
