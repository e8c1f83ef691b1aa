package event

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Rule validates a single payload field. Rules are values; every
// modifier returns a new Rule, so a rule shared between schemas is
// never mutated in place.
type Rule struct {
	kind       string
	required   bool
	hasDefault bool
	defaultFn  func() any
	checks     []func(any) error
}

// String declares a string field.
func String() Rule { return Rule{kind: "string"} }

// Int declares an integer field.
func Int() Rule { return Rule{kind: "int"} }

// Float declares a floating-point field. Integer values are accepted
// and widened.
func Float() Rule { return Rule{kind: "float"} }

// Bool declares a boolean field.
func Bool() Rule { return Rule{kind: "bool"} }

// Time declares a time.Time field.
func Time() Rule { return Rule{kind: "time"} }

// UUID declares a field holding a UUID, either as uuid.UUID or as a
// string in canonical form.
func UUID() Rule { return Rule{kind: "uuid"} }

// Any declares a field without a type constraint.
func Any() Rule { return Rule{kind: "any"} }

// Required marks the field as mandatory.
func (r Rule) Required() Rule {
	r.required = true
	return r
}

// Default supplies a value used when the field is absent.
func (r Rule) Default(v any) Rule {
	return r.DefaultFunc(func() any { return v })
}

// DefaultFunc supplies a value computed at creation time when the field
// is absent.
func (r Rule) DefaultFunc(fn func() any) Rule {
	r.hasDefault = true
	r.defaultFn = fn
	return r
}

// Check adds a custom validation run after the type check passes.
func (r Rule) Check(fn func(any) error) Rule {
	checks := make([]func(any) error, len(r.checks), len(r.checks)+1)
	copy(checks, r.checks)
	r.checks = append(checks, fn)
	return r
}

// validate type-checks a present value and runs the custom checks.
// Float widening happens here, so the returned value is what the record
// stores.
func (r Rule) validate(v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("must not be null")
	}
	switch r.kind {
	case "string":
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("must be a string, got %T", v)
		}
	case "int":
		switch v.(type) {
		case int, int32, int64:
		default:
			return nil, fmt.Errorf("must be an integer, got %T", v)
		}
	case "float":
		switch n := v.(type) {
		case float64:
		case float32:
			v = float64(n)
		case int:
			v = float64(n)
		case int64:
			v = float64(n)
		default:
			return nil, fmt.Errorf("must be a number, got %T", v)
		}
	case "bool":
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("must be a boolean, got %T", v)
		}
	case "time":
		if _, ok := v.(time.Time); !ok {
			return nil, fmt.Errorf("must be a time, got %T", v)
		}
	case "uuid":
		switch id := v.(type) {
		case uuid.UUID:
		case string:
			if _, err := uuid.Parse(id); err != nil {
				return nil, fmt.Errorf("must be a valid UUID: %v", err)
			}
		default:
			return nil, fmt.Errorf("must be a UUID, got %T", v)
		}
	case "any":
	}
	for _, check := range r.checks {
		if err := check(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Schema is a payload validator: a set of named field rules. Schemas
// are immutable value descriptors; Extend derives a new schema without
// touching the receiver.
type Schema struct {
	fields  map[string]Rule
	defined bool
}

// NewSchema builds a schema from field rules. An empty map declares a
// payload-less event.
func NewSchema(fields map[string]Rule) Schema {
	copied := make(map[string]Rule, len(fields))
	for name, rule := range fields {
		copied[name] = rule
	}
	return Schema{fields: copied, defined: true}
}

// IsZero reports whether the schema was never constructed. Factories
// refuse zero schemas.
func (s Schema) IsZero() bool { return !s.defined }

// Has reports whether the schema declares the named field.
func (s Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// FieldNames returns the declared field names in sorted order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extend derives a new schema that declares every field of the receiver
// plus the given ones. A field name already present is overridden in
// the derived schema; the receiver is unchanged.
func (s Schema) Extend(fields map[string]Rule) Schema {
	merged := make(map[string]Rule, len(s.fields)+len(fields))
	for name, rule := range s.fields {
		merged[name] = rule
	}
	for name, rule := range fields {
		merged[name] = rule
	}
	return Schema{fields: merged, defined: true}
}

// FieldViolation describes one field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Validate checks data against the schema. It returns a validated copy
// with defaults applied, and every violation found. Unknown fields are
// violations: a record never carries a field its schema does not
// declare.
func (s Schema) Validate(data map[string]any) (map[string]any, []FieldViolation) {
	var violations []FieldViolation
	out := make(map[string]any, len(s.fields))

	for name := range data {
		if !s.Has(name) {
			violations = append(violations, FieldViolation{
				Field:   name,
				Message: "is not declared in the schema",
			})
		}
	}

	for _, name := range s.FieldNames() {
		rule := s.fields[name]
		value, present := data[name]
		if !present {
			switch {
			case rule.hasDefault:
				out[name] = rule.defaultFn()
			case rule.required:
				violations = append(violations, FieldViolation{
					Field:   name,
					Message: "is required",
				})
			}
			continue
		}
		validated, err := rule.validate(value)
		if err != nil {
			violations = append(violations, FieldViolation{
				Field:   name,
				Message: err.Error(),
			})
			continue
		}
		out[name] = validated
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return out, nil
}
