package event

import (
	"fmt"
	"reflect"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is the codec used for rendering and wire encoding.
// ConfigCompatibleWithStandardLibrary sorts map keys, which keeps
// String output and envelope payloads deterministic.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is an immutable record of something that happened. Records are
// constructed by a Factory (or restored from an Envelope) and carry a
// type name, a timestamp, and the validated payload fields.
//
// Immutability is structural: fields are unexported and every accessor
// returns a copy, so a record cannot be altered after creation.
type Event struct {
	eventType string
	timestamp time.Time
	fields    map[string]any
}

// Typed resolves to an event type name. Event, Factory, and Name all
// satisfy it, so bus subscriptions accept any of them.
type Typed interface {
	Type() string
}

// Name is a literal event type name.
//
//	bus.On(event.Name("OrderPlaced"), handler)
type Name string

// Type returns the name itself.
func (n Name) Type() string { return string(n) }

// Type returns the event type name.
func (e Event) Type() string { return e.eventType }

// Timestamp returns when the event occurred.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Field returns a payload field by name.
func (e Event) Field(name string) (any, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns a copy of the payload fields. The timestamp is not a
// payload field; use Timestamp.
func (e Event) Fields() map[string]any {
	out := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// IsZero reports whether the record is the zero value, i.e. was never
// constructed by a factory or envelope.
func (e Event) IsZero() bool {
	return e.eventType == "" && e.timestamp.IsZero() && e.fields == nil
}

// Equals reports whether two records describe the same occurrence: the
// type matches, the timestamps denote the same instant, and every
// payload field is equal. A zero record is never equal to anything,
// including another zero record.
func (e Event) Equals(other Event) bool {
	if e.IsZero() || other.IsZero() {
		return false
	}
	if e.eventType != other.eventType {
		return false
	}
	if !e.timestamp.Equal(other.timestamp) {
		return false
	}
	if len(e.fields) != len(other.fields) {
		return false
	}
	for name, v := range e.fields {
		ov, ok := other.fields[name]
		if !ok || !fieldEqual(v, ov) {
			return false
		}
	}
	return true
}

// fieldEqual compares two payload values, treating time values by
// instant rather than by wall-clock representation.
func fieldEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// String renders the record as Name(json-of-fields).
func (e Event) String() string {
	data, err := json.Marshal(e.fields)
	if err != nil {
		return fmt.Sprintf("%s(%v)", e.eventType, e.fields)
	}
	return fmt.Sprintf("%s(%s)", e.eventType, data)
}
