// Package proc offloads blocking and CPU-bound work to a pool of worker
// processes.
//
// The manager side submits named tasks with JSON-serializable arguments;
// each worker process serves the other side of a newline-delimited JSON
// protocol on its stdin/stdout, resolving task names in a registered
// task table. Responses are correlated by unit id, so completion order
// is free to differ from submission order.
//
// Failure isolation: a unit that exceeds its timeout resolves to a
// Timeout failure and its worker is recycled; a worker that dies
// mid-unit resolves that unit to WorkerCrashed and is replaced; a full
// pending queue rejects submissions with Overloaded. A task's own error
// travels back as ExecutionError. Units resolve exactly once.
//
// The default worker command re-executes the host binary, which is
// expected to branch early:
//
//	func main() {
//	    if proc.IsWorkerProcess() {
//	        tasks := proc.NewTasks()
//	        tasks.Register("hash", hashTask)
//	        proc.RunWorker(tasks)
//	        return
//	    }
//	    // normal startup...
//	}
package proc
