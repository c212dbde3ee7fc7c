package proc

import (
	"encoding/json"
	"time"
)

// Unit is one unit of work submitted to the manager. The task is a name
// resolved in the worker's task registry; there is no closure shipping —
// both sides agree on the task table.
type Unit struct {
	// Task names the registered task to execute.
	Task string

	// Args are positional arguments, JSON-serializable.
	Args []any

	// Kwargs are keyword arguments, JSON-serializable.
	Kwargs map[string]any

	// Timeout bounds the unit's wall-clock execution. Zero uses the
	// manager's default.
	Timeout time.Duration
}

// Result is the outcome of one unit: a decoded value or a typed failure.
// Exactly one of Value and Err is meaningful.
type Result struct {
	Value any
	Err   error
}

// request is the wire form sent to a worker. One JSON object per line.
type request struct {
	ID     string         `json:"id"`
	Task   string         `json:"task"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// response is the wire form a worker sends back. Correlated by ID;
// workers may respond out of submission order.
type response struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // statusOK or statusError
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// decodeValue turns a response payload into plain Go data.
func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
