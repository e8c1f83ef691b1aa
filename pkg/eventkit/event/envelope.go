package event

import (
	"fmt"
	"time"
)

// Envelope is the wire shape of an event record:
// {type, timestamp, fields}. The core imposes no transport; adapters
// and stores use the envelope when they need a serialized form.
type Envelope struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewEnvelope captures a record for serialization.
func NewEnvelope(evt Event) Envelope {
	return Envelope{
		Type:      evt.Type(),
		Timestamp: evt.Timestamp(),
		Fields:    evt.Fields(),
	}
}

// Event restores the record described by the envelope. Field values
// decoded from JSON keep their decoded types (numbers arrive as
// float64), so restored records are equal to the original only up to
// JSON's type fidelity.
func (e Envelope) Event() Event {
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return Event{
		eventType: e.Type,
		timestamp: e.Timestamp,
		fields:    fields,
	}
}

// EncodeEnvelope serializes a record to its JSON wire form.
func EncodeEnvelope(evt Event) ([]byte, error) {
	data, err := json.Marshal(NewEnvelope(evt))
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", evt.Type(), err)
	}
	return data, nil
}

// DecodeEnvelope restores a record from its JSON wire form.
func DecodeEnvelope(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Event{}, fmt.Errorf("decode envelope: missing event type")
	}
	return env.Event(), nil
}
