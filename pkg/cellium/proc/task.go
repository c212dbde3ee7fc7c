package proc

import (
	"context"

	"github.com/xiaojinao/cellium/pkg/cellium/registry"
)

// TaskFunc is the unit implementation executed inside a worker process.
// Arguments arrive as decoded JSON data; the returned value must be
// JSON-serializable.
type TaskFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Tasks is the worker-side task table. The manager ships task names over
// the wire; the worker resolves them here.
type Tasks struct {
	reg *registry.Registry[string, TaskFunc]
}

// NewTasks creates an empty task table.
func NewTasks() *Tasks {
	return &Tasks{reg: registry.New[string, TaskFunc]()}
}

// Register binds a task name to its implementation.
func (t *Tasks) Register(name string, fn TaskFunc) {
	t.reg.Register(name, fn)
}

// Get returns the task bound to name.
func (t *Tasks) Get(name string) (TaskFunc, bool) {
	return t.reg.Get(name)
}

// Names returns all registered task names.
func (t *Tasks) Names() []string {
	return t.reg.Keys()
}
