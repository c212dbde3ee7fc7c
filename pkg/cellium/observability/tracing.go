package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the kernel tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("cellium")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDispatchSpan starts a span for one command dispatch.
	StartDispatchSpan(ctx context.Context, cellName, command string) (context.Context, trace.Span)

	// StartSubmitSpan starts a span for one work unit submission.
	// The submit span should be a child of the dispatch span when the
	// submission happens inside a command handler.
	StartSubmitSpan(ctx context.Context, task string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartDispatchSpan starts a span for one command dispatch.
func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, cellName, command string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cellium.dispatch",
		trace.WithAttributes(
			attribute.String("cell", cellName),
			attribute.String("command", command),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSubmitSpan starts a span for one work unit submission.
func (m *otelSpanManager) StartSubmitSpan(ctx context.Context, task string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cellium.submit."+task,
		trace.WithAttributes(
			attribute.String("task", task),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
