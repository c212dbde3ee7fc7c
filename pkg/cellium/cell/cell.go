// Package cell defines the contract between the kernel and its backend
// units.
//
// A cell is a named, stateful unit exposing a static table of commands
// and, optionally, a table of event handlers. Command tables are built
// once at construction and must not change afterwards — the router reads
// them without locking. Cells that hold mutable state synchronize it
// themselves; the router provides no per-cell mutual exclusion.
package cell

import (
	"context"

	"github.com/xiaojinao/cellium/pkg/cellium/args"
)

// CommandFunc handles one command invocation. It receives the decoded
// argument value and returns a result or a cell-defined error. Results
// are coerced to the wire's string form by the router: strings pass
// through, everything else is JSON-encoded.
type CommandFunc func(ctx context.Context, v args.Value) (any, error)

// EventFunc handles one event delivery. Failures are isolated by the bus:
// they are recorded, never re-raised to the publisher.
type EventFunc func(ctx context.Context, name string, payload map[string]any) error

// Command pairs a handler with its catalog description.
type Command struct {
	Fn          CommandFunc
	Description string
}

// Cell is the unit contract consumed by the registry and router.
type Cell interface {
	// Name returns the cell's unique identity within the registry.
	Name() string

	// Commands returns the command table. The returned map is read by
	// the router on every dispatch and must be immutable after load.
	Commands() map[string]Command

	// Events returns declared event handlers, or nil if the cell
	// subscribes to nothing. Entries are forwarded to the event bus
	// when the cell is registered.
	Events() map[string]EventFunc
}

// Teardowner is implemented by cells that need a shutdown hook. Teardown
// is best-effort: errors are logged, not propagated, and cells are torn
// down in reverse load order.
type Teardowner interface {
	Teardown(ctx context.Context) error
}

// Describe returns the command catalog of a cell as name -> description.
func Describe(c Cell) map[string]string {
	cmds := c.Commands()
	out := make(map[string]string, len(cmds))
	for name, cmd := range cmds {
		out[name] = cmd.Description
	}
	return out
}
