// Package visibility decides which configuration fields of a node are shown,
// given the user's current input values.
package visibility

import (
	"github.com/aretw0/weave/pkg/condition"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
)

// IsVisible reports whether prop should be rendered.
//
// currentPath is the path of the collection instance holding prop ("" at the
// top level). Rule paths are first resolved relative to it, then globally.
// version is the node's selected version, matched by the "@version" rule key.
func IsVisible(prop *domain.Property, inputs map[string]any, currentPath string, version int) bool {
	if prop.Hidden {
		return false
	}
	return displayed(prop.DisplayOptions, inputs, currentPath, version)
}

// ShouldDisplayCredential applies show/hide rules to a credential descriptor.
// Credentials have no collection context, so every path resolves globally.
func ShouldDisplayCredential(cred *domain.CredentialDescriptor, inputs map[string]any, version int) bool {
	return displayed(cred.DisplayOptions, inputs, "", version)
}

func displayed(opts *domain.DisplayOptions, inputs map[string]any, currentPath string, version int) bool {
	if opts == nil {
		return true
	}

	for path, conds := range opts.Hide {
		if condition.AnyMatch(conds, resolve(inputs, currentPath, path, version)) {
			return false
		}
	}

	if len(opts.Show) == 0 {
		return true
	}
	for path, conds := range opts.Show {
		if condition.AnyMatch(conds, resolve(inputs, currentPath, path, version)) {
			return true
		}
	}
	return false
}

// resolve looks up a rule path, preferring the sibling inside the current
// collection instance so that same-named fields of different array items
// never cross-resolve.
func resolve(inputs map[string]any, currentPath, path string, version int) any {
	if path == domain.VersionKey {
		return version
	}
	if currentPath != "" {
		if v, ok := paths.Get(inputs, paths.Join(currentPath, path)); ok {
			return v
		}
	}
	v, _ := paths.Get(inputs, path)
	return v
}

// VisibleProperties returns the visible subset of props. Property collections
// are pruned recursively with their name appended to the path; sections share
// the path of their parent. Array item templates are kept whole, see
// VisibleArrayItem.
func VisibleProperties(props []domain.Property, inputs map[string]any, currentPath string, version int) []domain.Property {
	visible := make([]domain.Property, 0, len(props))
	for i := range props {
		prop := props[i]
		if !IsVisible(&prop, inputs, currentPath, version) {
			continue
		}
		switch prop.Type {
		case domain.PropertyCollection, domain.PropertyAsyncPropertyCollection:
			prop.Collection = VisibleProperties(prop.Collection, inputs, paths.Join(currentPath, prop.Name), version)
		case domain.PropertySection:
			prop.Collection = VisibleProperties(prop.Collection, inputs, currentPath, version)
		}
		visible = append(visible, prop)
	}
	return visible
}

// VisibleArrayItem prunes the item template of an array property for the
// item at index.
func VisibleArrayItem(array *domain.Property, inputs map[string]any, currentPath string, index int, version int) []domain.Property {
	itemPath := paths.Item(paths.Join(currentPath, array.Name), index)
	return VisibleProperties(array.Collection, inputs, itemPath, version)
}

// VisibleCredentials filters the credential descriptors of a node version.
func VisibleCredentials(creds []domain.CredentialDescriptor, inputs map[string]any, version int) []domain.CredentialDescriptor {
	out := make([]domain.CredentialDescriptor, 0, len(creds))
	for i := range creds {
		if ShouldDisplayCredential(&creds[i], inputs, version) {
			out = append(out, creds[i])
		}
	}
	return out
}
