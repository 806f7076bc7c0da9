package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/weave/pkg/condition"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "number").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	_, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// NumberType validates numeric values of any Go kind, including json.Number.
// Numeric strings are rejected.
type NumberType struct{}

func (t *NumberType) Name() string { return "number" }

func (t *NumberType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return fmt.Errorf("expected number, got malformed %q", v.String())
		}
		return nil
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	_, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// OneOfType accepts only the listed values. Numbers match across kinds.
type OneOfType struct {
	values []any
}

func (t *OneOfType) Name() string {
	parts := make([]string, 0, len(t.values))
	for _, v := range t.values {
		parts = append(parts, fmt.Sprint(v))
	}
	return "oneOf(" + strings.Join(parts, "|") + ")"
}

func (t *OneOfType) Validate(value any) error {
	for _, allowed := range t.values {
		if condition.Equal(allowed, value) {
			return nil
		}
	}
	return fmt.Errorf("value %v is not one of the allowed options", value)
}

// JSONType accepts decoded JSON (objects and arrays) or a string holding valid JSON.
type JSONType struct{}

func (t *JSONType) Name() string { return "json" }

func (t *JSONType) Validate(value any) error {
	switch v := value.(type) {
	case map[string]any, []any:
		return nil
	case string:
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("expected valid JSON text")
		}
		return nil
	default:
		return fmt.Errorf("expected json, got %T", value)
	}
}

// AnyType accepts every value.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) Validate(any) error { return nil }

// ObjectType validates a map against a nested schema.
type ObjectType struct {
	fields Schema
}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Validate(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return Validate(t.fields, m)
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	// Validate each element
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// OptionalType lets a field be missing or null.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Number creates a numeric type validator.
func Number() Type { return &NumberType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// JSON creates a validator for JSON values or JSON text.
func JSON() Type { return &JSONType{} }

// Any creates a validator that accepts everything.
func Any() Type { return &AnyType{} }

// OneOf creates a validator restricted to values.
func OneOf(values ...any) Type {
	return &OneOfType{values: values}
}

// Object creates a validator for maps shaped like fields.
func Object(fields Schema) Type {
	return &ObjectType{fields: fields}
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Optional marks t as not required.
func Optional(t Type) Type {
	if _, ok := t.(*OptionalType); ok {
		return t
	}
	return &OptionalType{inner: t}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

func isOptional(t Type) bool {
	_, ok := t.(*OptionalType)
	return ok
}

func unwrap(t Type) Type {
	if o, ok := t.(*OptionalType); ok {
		return o.inner
	}
	return t
}
