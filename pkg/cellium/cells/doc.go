// Package cells ships the built-in cells: a greeter, an arithmetic
// calculator with event publication and worker offload, and a jsontest
// cell that exercises every argument decoding mode.
//
// Built-ins register like any other cell:
//
//	kernel, err := cellium.New(
//	    cellium.WithSettings(settings),
//	    cellium.WithFactory("calculator", cells.NewCalculator),
//	)
//
// Hosts using the calculator must serve its worker task table in worker
// mode; see WorkerTasks.
package cells
