package schema

import (
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
	"github.com/aretw0/weave/pkg/visibility"
)

// TypeOf maps a leaf property onto the type its input must have.
// Containers are described by FromProperties.
func TypeOf(prop *domain.Property) Type {
	var t Type
	switch prop.Type {
	case domain.PropertyString, domain.PropertyPassword, domain.PropertyCode, domain.PropertyCredential:
		t = String()
	case domain.PropertyNumber:
		t = Number()
	case domain.PropertyBoolean:
		t = Bool()
	case domain.PropertyOptions:
		t = options(prop)
	case domain.PropertyMultiOptions:
		t = Slice(options(prop))
	case domain.PropertyJSON, domain.PropertyJSONSchema:
		t = JSON()
	default:
		// Async values are only known once the loader answers.
		t = Any()
	}
	if !required(prop) {
		return Optional(t)
	}
	return t
}

// FromProperties derives the schema of every declared property, visible or not.
// Section children share their parent's level.
func FromProperties(props []domain.Property) Schema {
	s := make(Schema, len(props))
	for i := range props {
		addProperty(s, &props[i])
	}
	return s
}

// ValidateInputs checks inputs against the properties visible for them.
// Hidden properties are never reported and every array item is checked
// against the children visible for that item.
func ValidateInputs(props []domain.Property, inputs map[string]any, version int) error {
	return aggregate(validateVisible(props, inputs, "", version))
}

func validateVisible(props []domain.Property, inputs map[string]any, currentPath string, version int) []error {
	var errs []error
	for _, prop := range visibility.VisibleProperties(props, inputs, currentPath, version) {
		path := paths.Join(currentPath, prop.Name)
		value, _ := paths.Get(inputs, path)

		switch {
		case prop.Type == domain.PropertySection:
			errs = append(errs, validateVisible(prop.Collection, inputs, currentPath, version)...)
		case prop.Type == domain.PropertyCollection:
			if value == nil {
				continue
			}
			if _, ok := value.(map[string]any); !ok {
				errs = append(errs, check(Object(nil), value, path)...)
				continue
			}
			errs = append(errs, validateVisible(prop.Collection, inputs, path, version)...)
		case prop.Type == domain.PropertyArray:
			if value == nil {
				continue
			}
			items, ok := value.([]any)
			if !ok {
				errs = append(errs, check(Slice(Any()), value, path)...)
				continue
			}
			for idx := range items {
				itemPath := paths.Item(path, idx)
				children := visibility.VisibleArrayItem(&prop, inputs, currentPath, idx, version)
				errs = append(errs, check(Object(FromProperties(children)), items[idx], itemPath)...)
			}
		default:
			errs = append(errs, check(TypeOf(&prop), value, path)...)
		}
	}
	return errs
}

func addProperty(s Schema, prop *domain.Property) {
	switch prop.Type {
	case domain.PropertySection:
		for k, v := range FromProperties(prop.Collection) {
			s[k] = v
		}
	case domain.PropertyCollection:
		s[prop.Name] = Optional(Object(FromProperties(prop.Collection)))
	case domain.PropertyArray:
		s[prop.Name] = Optional(Slice(Object(FromProperties(prop.Collection))))
	default:
		s[prop.Name] = TypeOf(prop)
	}
}

// required reports whether an empty value is a problem. Booleans, lists and
// containers always have a usable empty state.
func required(prop *domain.Property) bool {
	if prop.Optional || prop.Default != nil {
		return false
	}
	switch prop.Type {
	case domain.PropertyString, domain.PropertyPassword, domain.PropertyCode,
		domain.PropertyNumber, domain.PropertyOptions, domain.PropertyCredential:
		return true
	}
	return false
}

func options(prop *domain.Property) Type {
	if len(prop.Options) == 0 {
		return Any()
	}
	values := make([]any, 0, len(prop.Options))
	for _, o := range prop.Options {
		values = append(values, o.Value)
	}
	return OneOf(values...)
}
