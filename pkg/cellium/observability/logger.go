// Package observability provides structured logging, metrics, and
// tracing for the kernel's dispatch path.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds dispatch context to a logger.
// Returns a new logger with cell and command fields.
func EnrichLogger(logger *slog.Logger, cellName, command string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("cell", cellName),
		slog.String("command", command),
	)
}

// LogDispatch logs an inbound command dispatch.
func LogDispatch(logger *slog.Logger, cellName, command string) {
	if logger == nil {
		return
	}
	logger.Debug("dispatching command",
		slog.String("cell", cellName),
		slog.String("command", command),
	)
}

// LogDispatchComplete logs a successful command dispatch.
func LogDispatchComplete(logger *slog.Logger, cellName, command string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("command completed",
		slog.String("cell", cellName),
		slog.String("command", command),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDispatchError logs a failed command dispatch.
func LogDispatchError(logger *slog.Logger, cellName, command string, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Error("command failed",
		slog.String("cell", cellName),
		slog.String("command", command),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}

// LogPublish logs an event publication with its fan-out size.
func LogPublish(logger *slog.Logger, event string, subscribers int) {
	if logger == nil {
		return
	}
	logger.Debug("publishing event",
		slog.String("event", event),
		slog.Int("subscribers", subscribers),
	)
}

// LogSubmit logs a work unit submission.
func LogSubmit(logger *slog.Logger, task string) {
	if logger == nil {
		return
	}
	logger.Debug("submitting work unit",
		slog.String("task", task),
	)
}

// LogSubmitComplete logs a resolved work unit.
func LogSubmitComplete(logger *slog.Logger, task string, durationMs float64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("work unit failed",
			slog.String("task", task),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("work unit completed",
		slog.String("task", task),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
