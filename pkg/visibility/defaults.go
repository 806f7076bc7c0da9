package visibility

import "github.com/aretw0/weave/pkg/domain"

// DefaultInputs builds an input tree in which every specified leaf holds its
// default value, or nil when no default is declared.
func DefaultInputs(props []domain.Property) map[string]any {
	inputs := make(map[string]any)
	ApplyDefaults(props, inputs)
	return inputs
}

// ApplyDefaults initialises the entries of inputs that are missing, leaving
// values the user already entered untouched.
func ApplyDefaults(props []domain.Property, inputs map[string]any) {
	for i := range props {
		prop := &props[i]
		switch prop.Type {
		case domain.PropertySection:
			ApplyDefaults(prop.Collection, inputs)
		case domain.PropertyCollection, domain.PropertyAsyncPropertyCollection:
			child, ok := inputs[prop.Name].(map[string]any)
			if !ok {
				if inputs[prop.Name] != nil {
					continue
				}
				child = make(map[string]any)
				inputs[prop.Name] = child
			}
			ApplyDefaults(prop.Collection, child)
		case domain.PropertyArray:
			items, ok := inputs[prop.Name].([]any)
			if !ok {
				if inputs[prop.Name] != nil {
					continue
				}
				items = defaultItems(prop.Default)
				inputs[prop.Name] = items
			}
			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					ApplyDefaults(prop.Collection, m)
				}
			}
		default:
			if _, present := inputs[prop.Name]; !present {
				inputs[prop.Name] = prop.Default
			}
		}
	}
}

func defaultItems(def any) []any {
	src, ok := def.([]any)
	if !ok {
		return []any{}
	}
	items := make([]any, 0, len(src))
	for _, item := range src {
		if m, ok := item.(map[string]any); ok {
			cp := make(map[string]any, len(m))
			for k, v := range m {
				cp[k] = v
			}
			item = cp
		}
		items = append(items, item)
	}
	return items
}
