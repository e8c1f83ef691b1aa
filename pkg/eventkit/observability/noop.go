package observability

import (
	"context"
	"time"
)

// NoopBusMetrics is a BusMetrics that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopBusMetrics struct{}

// Compile-time interface check.
var _ BusMetrics = NoopBusMetrics{}

// RecordPublish does nothing.
func (NoopBusMetrics) RecordPublish(_ context.Context, _ string, _ int, _ time.Duration, _ error) {
}

// RecordPendingFlush does nothing.
func (NoopBusMetrics) RecordPendingFlush(_ context.Context, _ int, _ time.Duration, _ error) {}
