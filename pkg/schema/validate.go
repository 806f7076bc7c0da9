package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aretw0/weave/pkg/paths"
)

// Schema is a map of field names to their expected types.
// Example: {"url": String(), "timeout": Optional(Number()), "tags": Slice(String())}
type Schema map[string]Type

// Validate checks if data conforms to the schema.
// Returns an error with all validation failures found, keyed by dot-path.
// Fields are checked in name order and keys outside the schema are ignored.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}
	return aggregate(validateFields(schema, data, ""))
}

// ValidateFields validates only specific fields from data against the schema.
// Missing fields are treated as an error.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	if len(fields) == 0 {
		// No fields to validate
		return nil
	}

	subset := make(Schema, len(fields))
	var errs []error
	for _, fieldName := range fields {
		fieldType, exists := schema[fieldName]
		if !exists {
			// Field not defined in schema
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "not defined in schema",
			})
			continue
		}
		subset[fieldName] = fieldType
	}

	errs = append(errs, validateFields(subset, data, "")...)
	return aggregate(errs)
}

func validateFields(schema Schema, data map[string]any, prefix string) []error {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		value := data[name]
		errs = append(errs, check(schema[name], value, paths.Join(prefix, name))...)
	}
	return errs
}

// check validates value and descends into objects and slices so nested
// failures carry their full path.
func check(t Type, value any, key string) []error {
	if value == nil {
		if isOptional(t) {
			return nil
		}
		return []error{&ValidationError{Key: key, Reason: "required"}}
	}

	switch inner := unwrap(t).(type) {
	case *ObjectType:
		m, ok := value.(map[string]any)
		if !ok {
			return []error{&ValidationError{Key: key, Reason: fmt.Sprintf("expected object, got %T", value), Value: value}}
		}
		return validateFields(inner.fields, m, key)
	case *SliceType:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return []error{&ValidationError{Key: key, Reason: fmt.Sprintf("expected slice, got %T", value), Value: value}}
		}
		var errs []error
		for i := 0; i < rv.Len(); i++ {
			errs = append(errs, check(inner.elemType, rv.Index(i).Interface(), paths.Item(key, i))...)
		}
		return errs
	default:
		if err := inner.Validate(value); err != nil {
			return []error{&ValidationError{Key: key, Reason: err.Error(), Value: value}}
		}
		return nil
	}
}
