package proc

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaojinao/cellium/pkg/cellium/errors"
	"github.com/xiaojinao/cellium/pkg/cellium/observability"
)

// ManagerConfig configures the process manager.
type ManagerConfig struct {
	// Workers is the pool size. Default: 2.
	Workers int

	// QueueSize bounds the pending queue; submissions beyond the bound
	// fail with OverloadedError. Default: 64.
	QueueSize int

	// DefaultTimeout applies to units submitted with a zero timeout.
	// Default: 30s.
	DefaultTimeout time.Duration

	// Command is the worker process argv. Empty defaults to re-executing
	// the current binary, which is expected to check IsWorkerProcess and
	// call RunWorker.
	Command []string

	// Env is appended to the worker environment.
	Env []string

	// StopGrace is how long a worker gets to exit on EOF before being
	// killed. Default: 250ms.
	StopGrace time.Duration

	// Logger for pool diagnostics. Nil disables logging.
	Logger *slog.Logger

	// OnResult is called once per resolved unit (for metrics).
	OnResult func(task string, duration time.Duration, err error)

	// Spans manages submission trace spans. Nil defaults to
	// NoopSpanManager.
	Spans observability.SpanManager
}

// DefaultManagerConfig provides reasonable defaults.
var DefaultManagerConfig = ManagerConfig{
	Workers:        2,
	QueueSize:      64,
	DefaultTimeout: 30 * time.Second,
	StopGrace:      250 * time.Millisecond,
}

// Manager owns a pool of worker processes and offloads units of work to
// them. Submissions are safe under concurrency; results are correlated
// back by unit id, tolerating out-of-order completion. A worker that
// crashes or exceeds a unit's timeout is recycled so one bad unit cannot
// permanently shrink the pool.
type Manager struct {
	config ManagerConfig

	queue chan *pending
	wg    sync.WaitGroup

	// subMu serializes Submit against Shutdown's queue close.
	subMu     sync.RWMutex
	accepting bool

	// correlation table: unit id -> reply channel
	mu       sync.Mutex
	inflight map[string]chan response

	forceCh   chan struct{} // closed to force-terminate during shutdown
	closeOnce sync.Once
	forceOnce sync.Once
}

// pending tracks one queued unit until resolution.
type pending struct {
	id     string
	unit   Unit
	future *Future
	queued time.Time
}

// NewManager creates and starts a process manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.Workers <= 0 {
		config.Workers = DefaultManagerConfig.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultManagerConfig.QueueSize
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultManagerConfig.DefaultTimeout
	}
	if config.StopGrace <= 0 {
		config.StopGrace = DefaultManagerConfig.StopGrace
	}
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}
	if len(config.Command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		config.Command = []string{exe}
	}

	m := &Manager{
		config:    config,
		queue:     make(chan *pending, config.QueueSize),
		accepting: true,
		inflight:  make(map[string]chan response),
		forceCh:   make(chan struct{}),
	}

	m.wg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go m.workerLoop(i)
	}

	return m, nil
}

// Submit executes a unit and blocks until it resolves or times out. The
// submission is traced and logged end to end, queue wait included.
func (m *Manager) Submit(ctx context.Context, unit Unit) Result {
	observability.LogSubmit(m.config.Logger, unit.Task)
	ctx, span := m.config.Spans.StartSubmitSpan(ctx, unit.Task)
	done := observability.TimedOperation()

	f, err := m.SubmitAsync(unit)
	if err != nil {
		m.config.Spans.EndSpanWithError(span, err)
		observability.LogSubmitComplete(m.config.Logger, unit.Task, done(), err)
		return Result{Err: err}
	}

	res := f.Wait(ctx)
	m.config.Spans.EndSpanWithError(span, res.Err)
	observability.LogSubmitComplete(m.config.Logger, unit.Task, done(), res.Err)
	return res
}

// SubmitAsync enqueues a unit and returns a Future for its result. It
// fails immediately with OverloadedError when the queue is full and with
// a shutdown error once Shutdown has begun.
func (m *Manager) SubmitAsync(unit Unit) (*Future, error) {
	if unit.Timeout <= 0 {
		unit.Timeout = m.config.DefaultTimeout
	}

	p := &pending{
		id:     uuid.New().String(),
		unit:   unit,
		future: newFuture(),
		queued: time.Now(),
	}

	m.subMu.RLock()
	defer m.subMu.RUnlock()

	if !m.accepting {
		return nil, &errors.ExecutionError{
			UnitID: p.id,
			Task:   unit.Task,
			Detail: "process manager is shut down",
		}
	}

	select {
	case m.queue <- p:
		return p.future, nil
	default:
		return nil, &errors.OverloadedError{QueueSize: m.config.QueueSize}
	}
}

// workerLoop owns one worker process and drains the queue through it.
// The loop never abandons queued units: every unit it dequeues is either
// executed or resolved with a typed failure, even when spawning is
// impossible or shutdown force-terminates the pool.
func (m *Manager) workerLoop(idx int) {
	defer m.wg.Done()

	w := m.spawn(idx)
	defer func() {
		if w != nil {
			w.stop(m.config.StopGrace)
		}
	}()

	for {
		select {
		case <-m.forceCh:
			m.drainForced()
			return
		case p, ok := <-m.queue:
			if !ok {
				return
			}
			// A nil return means no worker is available; the next
			// iteration retries the spawn, so unit resolution continues
			// even with a broken worker command.
			w = m.execute(idx, w, p)

			select {
			case <-m.forceCh:
				m.drainForced()
				return
			default:
			}
		}
	}
}

// drainForced resolves every unit still queued when force-termination
// begins. forceCh only closes after the queue is closed, so the loop
// terminates.
func (m *Manager) drainForced() {
	for p := range m.queue {
		err := &errors.ExecutionError{
			UnitID: p.id, Task: p.unit.Task, Detail: "force-terminated at shutdown"}
		p.future.resolve(Result{Err: err})
		if m.config.OnResult != nil {
			m.config.OnResult(p.unit.Task, time.Since(p.queued), err)
		}
	}
}

// execute runs one unit on the given worker, resolving its future exactly
// once, and returns the worker to use next (a fresh one after a crash,
// timeout, or send failure; nil when no worker could be spawned).
func (m *Manager) execute(idx int, w *workerProc, p *pending) *workerProc {
	start := time.Now()
	resolve := func(r Result) {
		p.future.resolve(r)
		if m.config.OnResult != nil {
			m.config.OnResult(p.unit.Task, time.Since(start), r.Err)
		}
	}

	if w == nil {
		if w = m.spawn(idx); w == nil {
			resolve(Result{Err: &errors.WorkerCrashedError{
				UnitID: p.id, Task: p.unit.Task, ExitCode: -1}})
			return nil
		}
	}

	reply := make(chan response, 1)
	m.mu.Lock()
	m.inflight[p.id] = reply
	m.mu.Unlock()

	req := request{ID: p.id, Task: p.unit.Task, Args: p.unit.Args, Kwargs: p.unit.Kwargs}
	if err := w.send(req); err != nil {
		m.abandon(p.id)
		// recycle stops the worker and waits for the reaper, so exitCode
		// is settled before it is read here.
		next := m.recycle(idx, w)
		resolve(Result{Err: &errors.WorkerCrashedError{
			UnitID: p.id, Task: p.unit.Task, ExitCode: w.exitCode}})
		return next
	}

	timer := time.NewTimer(p.unit.Timeout)
	defer timer.Stop()

	select {
	case resp := <-reply:
		resolve(m.toResult(p, resp))
		return w

	case <-w.dead:
		// The worker may have written the response just before dying.
		select {
		case resp := <-reply:
			resolve(m.toResult(p, resp))
		default:
			m.abandon(p.id)
			resolve(Result{Err: &errors.WorkerCrashedError{
				UnitID: p.id, Task: p.unit.Task, ExitCode: w.exitCode}})
		}
		return m.recycle(idx, w)

	case <-timer.C:
		m.abandon(p.id)
		resolve(Result{Err: &errors.TimeoutError{
			UnitID: p.id, Task: p.unit.Task, Timeout: p.unit.Timeout.String()}})
		return m.recycle(idx, w)

	case <-m.forceCh:
		m.abandon(p.id)
		resolve(Result{Err: &errors.ExecutionError{
			UnitID: p.id, Task: p.unit.Task, Detail: "force-terminated at shutdown"}})
		return w
	}
}

// toResult converts a worker response into a Result.
func (m *Manager) toResult(p *pending, resp response) Result {
	if resp.Status != statusOK {
		return Result{Err: &errors.ExecutionError{
			UnitID: p.id, Task: p.unit.Task, Detail: resp.Error}}
	}
	return Result{Value: decodeValue(resp.Value)}
}

// deliver routes a worker response to its waiting submission. Responses
// for abandoned units fall on the floor.
func (m *Manager) deliver(resp response) {
	m.mu.Lock()
	reply, ok := m.inflight[resp.ID]
	if ok {
		delete(m.inflight, resp.ID)
	}
	m.mu.Unlock()

	if ok {
		reply <- resp
	}
}

// abandon drops a unit's correlation entry; a late response is discarded.
func (m *Manager) abandon(id string) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}

// spawn starts a worker process, logging failures. Returns nil only if
// spawning is impossible.
func (m *Manager) spawn(idx int) *workerProc {
	w, err := startWorker(m.config.Command, m.config.Env, m.deliver)
	if err != nil {
		if m.config.Logger != nil {
			m.config.Logger.Error("worker spawn failed",
				slog.Int("worker", idx),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	if m.config.Logger != nil {
		m.config.Logger.Debug("worker started",
			slog.Int("worker", idx),
			slog.Int("pid", w.cmd.Process.Pid),
		)
	}
	return w
}

// recycle replaces a dead or poisoned worker with a fresh one.
func (m *Manager) recycle(idx int, w *workerProc) *workerProc {
	w.stop(m.config.StopGrace)
	if m.config.Logger != nil {
		m.config.Logger.Warn("recycling worker",
			slog.Int("worker", idx),
			slog.Int("exit_code", w.exitCode),
		)
	}

	select {
	case <-m.forceCh:
		return nil
	default:
	}
	return m.spawn(idx)
}

// Shutdown stops accepting submissions, waits for queued and in-flight
// units up to the context deadline, then force-terminates the remaining
// workers. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.subMu.Lock()
		m.accepting = false
		close(m.queue)
		m.subMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.forceOnce.Do(func() { close(m.forceCh) })
		<-done
		return ctx.Err()
	}
}
