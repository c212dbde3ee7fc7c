package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics collection is disabled.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordDispatch(ctx context.Context, cellName, command string, duration time.Duration, errKind string) {
}

func (NoopMetrics) RecordPublish(ctx context.Context, event string, subscribers int, duration time.Duration) {
}

func (NoopMetrics) RecordSubmit(ctx context.Context, task string, duration time.Duration, err error) {
}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

func (NoopSpanManager) StartDispatchSpan(ctx context.Context, cellName, command string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) StartSubmitSpan(ctx context.Context, task string) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

func (NoopSpanManager) EndSpanWithError(span trace.Span, err error) {}

func (NoopSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
}
