package proc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// WorkerEnv marks a process as a pool worker. The manager sets it in the
// environment of every child it spawns; a host binary that serves as its
// own worker checks IsWorkerProcess at startup and hands control to
// RunWorker.
const WorkerEnv = "CELLIUM_WORKER"

// IsWorkerProcess reports whether this process was spawned as a pool
// worker.
func IsWorkerProcess() bool {
	return os.Getenv(WorkerEnv) != ""
}

// RunWorker serves the worker side of the protocol on stdin/stdout until
// stdin closes. It is the main loop of a worker process.
func RunWorker(tasks *Tasks) error {
	return ServeWorker(tasks, os.Stdin, os.Stdout)
}

// ServeWorker reads newline-delimited JSON requests from in, executes
// each against the task table, and writes one response per request to
// out. A task panic becomes an error response, not a worker death. Serve
// returns when in reaches EOF.
func ServeWorker(tasks *Tasks, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			// Without an id there is nothing to correlate; skip.
			continue
		}

		resp := executeTask(tasks, &req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

// maxLineBytes bounds a single protocol line (request or response).
const maxLineBytes = 8 * 1024 * 1024

// executeTask runs one request, converting panics and unknown tasks into
// error responses.
func executeTask(tasks *Tasks, req *request) (resp response) {
	resp = response{ID: req.ID, Status: statusOK}

	defer func() {
		if r := recover(); r != nil {
			resp.Status = statusError
			resp.Value = nil
			resp.Error = fmt.Sprintf("task panic: %v", r)
		}
	}()

	fn, ok := tasks.Get(req.Task)
	if !ok {
		return response{ID: req.ID, Status: statusError,
			Error: fmt.Sprintf("unknown task: %q", req.Task)}
	}

	value, err := fn(context.Background(), req.Args, req.Kwargs)
	if err != nil {
		return response{ID: req.ID, Status: statusError, Error: err.Error()}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return response{ID: req.ID, Status: statusError,
			Error: fmt.Sprintf("unserializable result: %v", err)}
	}
	resp.Value = data
	return resp
}

// workerProc is the manager-side handle on one child worker process.
type workerProc struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	encMu sync.Mutex
	enc   *json.Encoder

	// dead is closed when the process exits; exitCode is valid after.
	dead     chan struct{}
	exitCode int
}

// startWorker launches one worker process and begins reading its
// responses, routing each through deliver.
func startWorker(command []string, env []string, deliver func(response)) (*workerProc, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("worker command not configured")
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Env = append(cmd.Env, WorkerEnv+"=1")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	w := &workerProc{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dead:  make(chan struct{}),
	}

	go w.readLoop(stdout, deliver)
	return w, nil
}

// readLoop routes worker responses until the process's stdout closes,
// then reaps the process.
func (w *workerProc) readLoop(stdout io.Reader, deliver func(response)) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		deliver(resp)
	}

	err := w.cmd.Wait()
	w.exitCode = 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		w.exitCode = exitErr.ExitCode()
	} else if err != nil {
		w.exitCode = -1
	}
	close(w.dead)
}

// send writes one request to the worker. An error here means the worker
// is unusable.
func (w *workerProc) send(req request) error {
	w.encMu.Lock()
	defer w.encMu.Unlock()
	return w.enc.Encode(req)
}

// stop terminates the worker. Closing stdin asks it to exit on EOF; a
// worker that lingers past the grace period is killed. stop waits for the
// reader to reap the process.
func (w *workerProc) stop(grace time.Duration) {
	_ = w.stdin.Close()

	select {
	case <-w.dead:
		return
	case <-time.After(grace):
	}

	_ = w.cmd.Process.Kill()
	<-w.dead
}
