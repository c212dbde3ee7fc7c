/*
Package cellium is a microkernel that routes opaque protocol strings from
an untrusted view layer to independently developed backend cells.

# Overview

A cell is a named unit exposing commands and, optionally, event handlers.
The kernel parses inbound "cell:command:args" strings, resolves the target
cell, invokes the command synchronously, and returns the reply as a
string. Failures never propagate to the transport: every error is encoded
into the reply as a JSON envelope carrying a machine-readable kind.

The kernel owns three process-wide singletons shared by all cells:
  - an in-process event bus with synchronous, subscription-ordered
    delivery and isolated handler failures
  - a process manager that offloads blocking work to a pool of worker
    OS processes over NDJSON pipes
  - an injector that constructs cells from factories, wires the
    singletons in, and detects circular cell dependencies at startup

# Basic Usage

Bind factories for the configured cells, construct the kernel, serve:

	settings := config.DefaultSettings
	settings.Cells = []string{"greeter"}

	kernel, err := cellium.New(
	    cellium.WithSettings(settings),
	    cellium.WithFactory("greeter", cells.NewGreeter),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer kernel.Shutdown(context.Background())

	reply := kernel.Handle(ctx, "greeter:greet:world")

# Worker Processes

The process manager re-executes the current binary for its workers. A
host binary checks for worker mode before constructing the kernel:

	func main() {
	    if proc.IsWorkerProcess() {
	        tasks := proc.NewTasks()
	        tasks.Register("sum", sumTask)
	        proc.RunWorker(tasks)
	        return
	    }
	    // construct the kernel ...
	}

# Events

Cells publish named events with a payload map; delivery happens on the
publisher's goroutine in subscription order, and one handler's failure
never suppresses the others. Failed deliveries are recorded in a dead
letter store (in memory, or SQLite when configured) for inspection.

The view layer may publish too, by sending a JSON envelope instead of a
command string:

	{"event_name": "ui.ready", "payload": {"theme": "dark"}}
*/
package cellium
