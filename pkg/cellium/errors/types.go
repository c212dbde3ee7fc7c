package errors

import "fmt"

// CellNotFoundError indicates a message addressed a cell that is not registered.
type CellNotFoundError struct {
	Cell string
}

// Error implements the error interface.
func (e *CellNotFoundError) Error() string {
	return fmt.Sprintf("cell not found: %q", e.Cell)
}

// CommandNotFoundError indicates a cell does not declare the requested command.
type CommandNotFoundError struct {
	Cell    string
	Command string
}

// Error implements the error interface.
func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %q in cell %q", e.Command, e.Cell)
}

// DuplicateCellError indicates two cells were registered under the same name.
type DuplicateCellError struct {
	Cell string
}

// Error implements the error interface.
func (e *DuplicateCellError) Error() string {
	return fmt.Sprintf("duplicate cell registration: %q", e.Cell)
}

// CircularDependencyError indicates a cycle in service or cell dependencies.
// Chain lists the resolution path that closed the cycle, in request order.
type CircularDependencyError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	if len(e.Chain) == 0 {
		return "circular dependency detected"
	}
	s := e.Chain[0]
	for _, link := range e.Chain[1:] {
		s += " -> " + link
	}
	return "circular dependency: " + s
}

// InvalidMessageError indicates an inbound message could not be parsed
// as either a command address or an event envelope.
type InvalidMessageError struct {
	Message string
	Reason  string
}

// Error implements the error interface.
func (e *InvalidMessageError) Error() string {
	return "invalid message: " + e.Reason
}

// HandlerFailureError wraps a failure raised by a cell's own command or
// event handler during dispatch.
type HandlerFailureError struct {
	Cell    string
	Command string
	Err     error
}

// Error implements the error interface.
func (e *HandlerFailureError) Error() string {
	return fmt.Sprintf("handler %s:%s failed: %v", e.Cell, e.Command, e.Err)
}

// Unwrap returns the handler's own error.
func (e *HandlerFailureError) Unwrap() error {
	return e.Err
}

// OverloadedError indicates the process manager's pending queue was full
// at submission time.
type OverloadedError struct {
	QueueSize int
}

// Error implements the error interface.
func (e *OverloadedError) Error() string {
	return fmt.Sprintf("process manager overloaded: queue full (%d pending)", e.QueueSize)
}

// TimeoutError indicates a work unit did not complete within its timeout.
type TimeoutError struct {
	UnitID  string
	Task    string
	Timeout string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("work unit %s (%s) timed out after %s", e.UnitID, e.Task, e.Timeout)
}

// WorkerCrashedError indicates a worker process died before responding.
// The unit's outcome is unknown; it is not retried automatically.
type WorkerCrashedError struct {
	UnitID   string
	Task     string
	ExitCode int
}

// Error implements the error interface.
func (e *WorkerCrashedError) Error() string {
	return fmt.Sprintf("worker crashed running unit %s (%s), exit code %d", e.UnitID, e.Task, e.ExitCode)
}

// ExecutionError indicates the worker ran a unit but the unit itself failed.
// Detail carries the unit's own error payload.
type ExecutionError struct {
	UnitID string
	Task   string
	Detail string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("work unit %s (%s) failed: %s", e.UnitID, e.Task, e.Detail)
}

// ConstructionError indicates a cell factory failed during loading.
type ConstructionError struct {
	Cell string
	Err  error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing cell %q: %v", e.Cell, e.Err)
}

// Unwrap returns the factory's error.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}
