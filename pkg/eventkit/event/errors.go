package event

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig marks factory construction mistakes: a missing name or an
// undefined schema. These are programming errors and fail fast.
var ErrConfig = errors.New("invalid event factory configuration")

// ValidationError is returned by Factory.Create when the payload fails
// schema validation. It aggregates every field-level violation and
// carries the event name and offending input for diagnostics.
type ValidationError struct {
	EventName  string
	Violations []FieldViolation
	Input      map[string]any
}

// Error lists all violations in a single message.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid %s event: %s", e.EventName, strings.Join(msgs, "; "))
}

// BusError is returned by the bus for malformed calls (typeless events,
// nil handlers, nil adapters) and for adapter failures, where it wraps
// the adapter's error rather than leaking it raw.
type BusError struct {
	Op        string // the bus operation: "publish", "subscribe", "set_adapter"
	EventType string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *BusError) Error() string {
	var b strings.Builder
	b.WriteString("event bus: ")
	b.WriteString(e.Op)
	if e.EventType != "" {
		b.WriteString(" ")
		b.WriteString(e.EventType)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *BusError) Unwrap() error { return e.Err }
