package observability

import (
	"log/slog"
)

// EnrichLogger adds event context to a logger. Returns a new logger
// with event_type and registration_id fields.
func EnrichLogger(logger *slog.Logger, eventType, registrationID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_type", eventType),
		slog.String("registration_id", registrationID),
	)
}

// LogPublish logs the outcome of one publish.
func LogPublish(logger *slog.Logger, eventType string, handlers int, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("event publish failed",
			slog.String("event_type", eventType),
			slog.Int("handlers", handlers),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("event published",
		slog.String("event_type", eventType),
		slog.Int("handlers", handlers),
	)
}

// LogHandlerError logs a single handler failure during dispatch.
func LogHandlerError(logger *slog.Logger, eventType, registrationID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event handler failed",
		slog.String("event_type", eventType),
		slog.String("registration_id", registrationID),
		slog.String("error", err.Error()),
	)
}

// LogPendingFlush logs the outcome of a pending-queue flush.
func LogPendingFlush(logger *slog.Logger, drained int, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("pending event flush failed",
			slog.Int("drained", drained),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("pending events flushed",
		slog.Int("drained", drained),
	)
}

// LogAdapterInstalled logs an adapter swap. Registrations made before
// the swap are unreachable through the adapter and need re-subscribing.
func LogAdapterInstalled(logger *slog.Logger, orphaned int) {
	if logger == nil {
		return
	}
	if orphaned > 0 {
		logger.Warn("transport adapter installed; existing in-memory subscriptions will not receive adapter events",
			slog.Int("orphaned_registrations", orphaned),
		)
		return
	}
	logger.Info("transport adapter installed")
}
