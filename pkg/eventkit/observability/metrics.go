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

// BusMetrics records event bus measurements.
// Use NewBusMetrics() for OTel metrics or NoopBusMetrics{} when disabled.
type BusMetrics interface {
	// RecordPublish records one publish with the number of handlers
	// dispatched, its duration, and error status. handlers is 0 when an
	// adapter handled the publish.
	RecordPublish(ctx context.Context, eventType string, handlers int, duration time.Duration, err error)

	// RecordPendingFlush records a pending-queue flush.
	RecordPendingFlush(ctx context.Context, drained int, duration time.Duration, err error)
}

// otelBusMetrics implements BusMetrics using OpenTelemetry.
type otelBusMetrics struct {
	publishes      metric.Int64Counter
	publishLatency metric.Float64Histogram
	publishErrors  metric.Int64Counter
	flushes        metric.Int64Counter
	flushSize      metric.Int64Histogram
}

var (
	defaultBusMetrics     *otelBusMetrics
	defaultBusMetricsOnce sync.Once
	defaultBusMetricsErr  error
)

func getDefaultBusMetrics() (*otelBusMetrics, error) {
	defaultBusMetricsOnce.Do(func() {
		defaultBusMetrics, defaultBusMetricsErr = newOtelBusMetrics()
	})
	return defaultBusMetrics, defaultBusMetricsErr
}

func newOtelBusMetrics() (*otelBusMetrics, error) {
	meter := otel.Meter("eventkit")

	publishes, err := meter.Int64Counter("eventkit.bus.publishes",
		metric.WithDescription("Number of events published"),
	)
	if err != nil {
		return nil, err
	}

	publishLatency, err := meter.Float64Histogram("eventkit.bus.publish_latency_ms",
		metric.WithDescription("Publish latency in milliseconds, including all handlers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	publishErrors, err := meter.Int64Counter("eventkit.bus.publish_errors",
		metric.WithDescription("Number of failed publishes"),
	)
	if err != nil {
		return nil, err
	}

	flushes, err := meter.Int64Counter("eventkit.bus.pending_flushes",
		metric.WithDescription("Number of pending-queue flushes"),
	)
	if err != nil {
		return nil, err
	}

	flushSize, err := meter.Int64Histogram("eventkit.bus.pending_flush_size",
		metric.WithDescription("Events drained per pending-queue flush"),
	)
	if err != nil {
		return nil, err
	}

	return &otelBusMetrics{
		publishes:      publishes,
		publishLatency: publishLatency,
		publishErrors:  publishErrors,
		flushes:        flushes,
		flushSize:      flushSize,
	}, nil
}

// NewBusMetrics returns a BusMetrics that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewBusMetrics() BusMetrics {
	m, err := getDefaultBusMetrics()
	if err != nil {
		slog.Warn("bus metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopBusMetrics{}
	}
	return m
}

// RecordPublish records one publish.
func (m *otelBusMetrics) RecordPublish(ctx context.Context, eventType string, handlers int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
	}

	m.publishes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.publishLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.publishErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordPendingFlush records a pending-queue flush.
func (m *otelBusMetrics) RecordPendingFlush(ctx context.Context, drained int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.flushes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.flushSize.Record(ctx, int64(drained), metric.WithAttributes(attrs...))
}
