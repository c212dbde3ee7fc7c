package proc

import "context"

// Future is the handle for a unit submitted with SubmitAsync. A future
// resolves exactly once.
type Future struct {
	done   chan struct{}
	result Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve sets the result. Called exactly once by the manager.
func (f *Future) resolve(r Result) {
	f.result = r
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the unit resolves or the context ends. Context
// cancellation abandons the wait, not the unit — the manager still runs
// and resolves it.
func (f *Future) Wait(ctx context.Context) Result {
	select {
	case <-f.done:
		return f.result
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Poll returns the result if available. The second return is false while
// the unit is still pending.
func (f *Future) Poll() (Result, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result{}, false
	}
}
