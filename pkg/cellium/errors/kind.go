// Package errors defines the kernel's error taxonomy and the classification
// used to encode failures into reply envelopes.
//
// The taxonomy mirrors the dispatch pipeline:
//   - Routing: CellNotFound, CommandNotFound, InvalidMessage
//   - Loading: DuplicateCell, CircularDependency, Construction
//   - Dispatch: HandlerFailure (a cell's own handler raised)
//   - Offload: Overloaded, Timeout, WorkerCrashed, Execution
//
// Every error carries enough context to name the cell, command, or work
// unit involved. Kind classifies an arbitrary error into the wire-level
// kind string used by the router's error envelope.
package errors

import "errors"

// Kind identifies an error class on the wire.
type Kind string

const (
	KindCellNotFound       Kind = "cell_not_found"
	KindCommandNotFound    Kind = "command_not_found"
	KindDuplicateCell      Kind = "duplicate_cell"
	KindCircularDependency Kind = "circular_dependency"
	KindInvalidMessage     Kind = "invalid_message"
	KindHandlerFailure     Kind = "handler_failure"
	KindOverloaded         Kind = "overloaded"
	KindTimeout            Kind = "timeout"
	KindWorkerCrashed      Kind = "worker_crashed"
	KindExecution          Kind = "execution_error"
	KindConstruction       Kind = "construction_error"
	KindInternal           Kind = "internal"
)

// String returns the wire representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// KindOf classifies an error into its Kind. Unknown errors classify as
// KindInternal so unexpected backend failures surface as a generic
// envelope rather than leaking internals.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var cellNotFound *CellNotFoundError
	if errors.As(err, &cellNotFound) {
		return KindCellNotFound
	}

	var cmdNotFound *CommandNotFoundError
	if errors.As(err, &cmdNotFound) {
		return KindCommandNotFound
	}

	var dup *DuplicateCellError
	if errors.As(err, &dup) {
		return KindDuplicateCell
	}

	var circular *CircularDependencyError
	if errors.As(err, &circular) {
		return KindCircularDependency
	}

	var invalid *InvalidMessageError
	if errors.As(err, &invalid) {
		return KindInvalidMessage
	}

	var handler *HandlerFailureError
	if errors.As(err, &handler) {
		return KindHandlerFailure
	}

	var overloaded *OverloadedError
	if errors.As(err, &overloaded) {
		return KindOverloaded
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return KindTimeout
	}

	var crashed *WorkerCrashedError
	if errors.As(err, &crashed) {
		return KindWorkerCrashed
	}

	var exec *ExecutionError
	if errors.As(err, &exec) {
		return KindExecution
	}

	var construction *ConstructionError
	if errors.As(err, &construction) {
		return KindConstruction
	}

	return KindInternal
}

// IsNotFound reports whether the error is a routing miss
// (cell or command not found).
func IsNotFound(err error) bool {
	k := KindOf(err)
	return k == KindCellNotFound || k == KindCommandNotFound
}

// IsOffloadFailure reports whether the error came from the process manager
// rather than the unit's own logic.
func IsOffloadFailure(err error) bool {
	k := KindOf(err)
	return k == KindOverloaded || k == KindTimeout || k == KindWorkerCrashed
}
