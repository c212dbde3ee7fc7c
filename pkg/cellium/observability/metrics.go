package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records kernel metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one command dispatch with its duration and
	// the error kind ("" for success).
	RecordDispatch(ctx context.Context, cellName, command string, duration time.Duration, kind string)

	// RecordPublish records one event publication and its fan-out size.
	RecordPublish(ctx context.Context, event string, subscribers int, duration time.Duration)

	// RecordSubmit records one resolved work unit.
	RecordSubmit(ctx context.Context, task string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	dispatchErrors  metric.Int64Counter
	publishes       metric.Int64Counter
	publishFanout   metric.Int64Histogram
	submissions     metric.Int64Counter
	submitLatency   metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("cellium")

	dispatches, err := meter.Int64Counter("cellium.dispatch.count",
		metric.WithDescription("Number of command dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("cellium.dispatch.latency_ms",
		metric.WithDescription("Command dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("cellium.dispatch.errors",
		metric.WithDescription("Number of failed command dispatches"),
	)
	if err != nil {
		return nil, err
	}

	publishes, err := meter.Int64Counter("cellium.event.publishes",
		metric.WithDescription("Number of event publications"),
	)
	if err != nil {
		return nil, err
	}

	publishFanout, err := meter.Int64Histogram("cellium.event.fanout",
		metric.WithDescription("Subscribers reached per publication"),
	)
	if err != nil {
		return nil, err
	}

	submissions, err := meter.Int64Counter("cellium.proc.submissions",
		metric.WithDescription("Number of resolved work units"),
	)
	if err != nil {
		return nil, err
	}

	submitLatency, err := meter.Float64Histogram("cellium.proc.latency_ms",
		metric.WithDescription("Work unit latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		dispatchErrors:  dispatchErrors,
		publishes:       publishes,
		publishFanout:   publishFanout,
		submissions:     submissions,
		submitLatency:   submitLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records a command dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, cellName, command string, duration time.Duration, kind string) {
	attrs := []attribute.KeyValue{
		attribute.String("cell", cellName),
		attribute.String("command", command),
	}

	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if kind != "" {
		errAttrs := append(attrs, attribute.String("kind", kind))
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}

// RecordPublish records an event publication.
func (m *otelMetrics) RecordPublish(ctx context.Context, event string, subscribers int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("event", event),
	}
	m.publishes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.publishFanout.Record(ctx, int64(subscribers), metric.WithAttributes(attrs...))
}

// RecordSubmit records a resolved work unit.
func (m *otelMetrics) RecordSubmit(ctx context.Context, task string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("task", task),
		attribute.Bool("success", err == nil),
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.submitLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
