package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the eventkit tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("eventkit")

// StartPublishSpan starts a span covering one event publish, including
// all handler executions.
//
// The span uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func StartPublishSpan(ctx context.Context, eventType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventkit.publish",
		trace.WithAttributes(
			attribute.String("event.type", eventType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFlushSpan starts a span covering a pending-queue flush.
func StartFlushSpan(ctx context.Context, drained int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventkit.pending_flush",
		trace.WithAttributes(
			attribute.Int("flush.drained", drained),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
