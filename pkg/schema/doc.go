// Package schema checks node inputs against the types their properties declare.
//
// It defines a small type system (string, number, bool, one-of, JSON, objects and
// slices) and maps every domain.PropertyType onto it. Schemas map field names to
// types and are usually derived from a property tree rather than written by hand:
//
//	s := schema.FromProperties(version.Properties)
//	if err := schema.Validate(s, version.Inputs); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        // e.g. field "options.timeout": expected number (got string)
//	    }
//	}
//
// ValidateInputs does the same for what the user can currently see: hidden
// properties are never reported, and each array item is checked against the
// children visible for that item.
//
// Custom validators can be registered for domain-specific validation:
//
//	port := schema.Custom("port", func(v any) error {
//	    n, ok := v.(int)
//	    if !ok || n <= 0 || n > 65535 {
//	        return fmt.Errorf("must be a port number")
//	    }
//	    return nil
//	})
package schema
