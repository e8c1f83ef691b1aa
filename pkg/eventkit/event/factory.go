package event

import (
	"fmt"
	"time"
)

// MetadataParentEvent is the metadata key recording the parent factory
// name on factories derived with Extend.
const MetadataParentEvent = "parent_event"

// timestampField is added to every factory schema so records always
// carry a timestamp, defaulted to the creation instant.
const timestampField = "timestamp"

// Factory declares an event type: a name, a payload schema, and
// free-form metadata. Factories are built once at domain-model
// definition time and are immutable afterwards.
type Factory struct {
	name     string
	schema   Schema
	metadata map[string]any
}

// FactoryConfig configures NewFactory.
type FactoryConfig struct {
	// Name is the event type name, conventionally past tense
	// ("OrderPlaced"). Required.
	Name string

	// Schema validates the payload. Required; use NewSchema(nil) for a
	// payload-less event.
	Schema Schema

	// Metadata is free-form descriptive data carried by the factory.
	Metadata map[string]any
}

// ExtendConfig configures Factory.Extend.
type ExtendConfig struct {
	// Name of the derived event type. Required.
	Name string

	// Schema transforms the parent's schema (already augmented with the
	// timestamp field) into the derived schema. The transform must
	// return a structural superset, typically via Schema.Extend. Nil
	// keeps the parent schema.
	Schema func(Schema) Schema

	// Metadata is shallow-merged over the parent's metadata.
	Metadata map[string]any
}

// NewFactory builds an event factory. The schema is augmented with a
// timestamp field defaulting to time.Now unless it already declares
// one. A missing name or schema is a configuration error.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrConfig)
	}
	if cfg.Schema.IsZero() {
		return nil, fmt.Errorf("%w: schema is required for event %q", ErrConfig, cfg.Name)
	}

	schema := cfg.Schema
	if !schema.Has(timestampField) {
		schema = schema.Extend(map[string]Rule{
			timestampField: Time().DefaultFunc(func() any { return time.Now() }),
		})
	}

	metadata := make(map[string]any, len(cfg.Metadata))
	for k, v := range cfg.Metadata {
		metadata[k] = v
	}

	return &Factory{name: cfg.Name, schema: schema, metadata: metadata}, nil
}

// MustFactory is NewFactory that panics on configuration errors. Meant
// for package-level factory declarations.
func MustFactory(cfg FactoryConfig) *Factory {
	f, err := NewFactory(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the event type name.
func (f *Factory) Name() string { return f.name }

// Type returns the event type name, satisfying Typed so a factory can
// be passed directly to Bus.On and Bus.Once.
func (f *Factory) Type() string { return f.name }

// Schema returns the factory's schema, including the augmented
// timestamp field.
func (f *Factory) Schema() Schema { return f.schema }

// Metadata returns a copy of the factory metadata.
func (f *Factory) Metadata() map[string]any {
	out := make(map[string]any, len(f.metadata))
	for k, v := range f.metadata {
		out[k] = v
	}
	return out
}

// Create validates data against the schema and returns an immutable
// record carrying the validated fields, the factory's name as type, and
// a timestamp defaulted to now when omitted. On validation failure it
// returns a *ValidationError aggregating every field violation; no
// partial record is produced.
func (f *Factory) Create(data map[string]any) (Event, error) {
	validated, violations := f.schema.Validate(data)
	if len(violations) > 0 {
		return Event{}, &ValidationError{
			EventName:  f.name,
			Violations: violations,
			Input:      data,
		}
	}

	// A caller-declared timestamp rule may be optional or non-time;
	// fall back to now so a record never lacks a timestamp.
	ts, ok := validated[timestampField].(time.Time)
	if !ok {
		ts = time.Now()
	}
	delete(validated, timestampField)

	return Event{
		eventType: f.name,
		timestamp: ts,
		fields:    validated,
	}, nil
}

// MustCreate is Create that panics on validation failure. Meant for
// tests and fixtures.
func (f *Factory) MustCreate(data map[string]any) Event {
	evt, err := f.Create(data)
	if err != nil {
		panic(err)
	}
	return evt
}

// Extend derives a new factory. The transform receives the parent's
// augmented schema; the derived factory's metadata is the parent's
// metadata shallow-merged with cfg.Metadata, plus parent_event set to
// the parent's name. The parent factory is not modified.
func (f *Factory) Extend(cfg ExtendConfig) (*Factory, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required to extend event %q", ErrConfig, f.name)
	}

	schema := f.schema
	if cfg.Schema != nil {
		schema = cfg.Schema(schema)
	}

	metadata := f.Metadata()
	for k, v := range cfg.Metadata {
		metadata[k] = v
	}
	metadata[MetadataParentEvent] = f.name

	return NewFactory(FactoryConfig{
		Name:     cfg.Name,
		Schema:   schema,
		Metadata: metadata,
	})
}
