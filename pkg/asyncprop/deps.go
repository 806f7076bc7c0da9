// Package asyncprop tracks which inputs an async property depends on and
// keeps its fetched data fresh.
//
// Dependencies come from the property's explicit list when present. Otherwise
// they are derived from the paths its displayOptions reference, on the
// assumption that the fields driving visibility also drive the data. That is
// an approximation: a loader may read inputs its visibility rules never
// mention, in which case an explicit dependencies list is required.
package asyncprop

import (
	"encoding/json"
	"sort"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
)

// ExtractDependencies returns the sorted, de-duplicated input paths prop depends on.
func ExtractDependencies(prop *domain.Property) []string {
	if len(prop.Dependencies) > 0 {
		return unique(prop.Dependencies)
	}
	if prop.DisplayOptions == nil {
		return nil
	}

	var deps []string
	for path := range prop.DisplayOptions.Show {
		deps = append(deps, path)
	}
	for path := range prop.DisplayOptions.Hide {
		deps = append(deps, path)
	}
	return unique(deps)
}

// ExtractRelevantInputs projects inputs down to the values at deps, keyed by
// path. Paths that resolve to undefined are skipped; explicit nulls are kept.
func ExtractRelevantInputs(inputs map[string]any, deps []string) map[string]any {
	return ExtractRelevantInputsAt(inputs, "", deps)
}

// ExtractRelevantInputsAt is ExtractRelevantInputs for a property living under
// currentPath (a collection or an array item such as "tools.0"). Each
// dependency is looked up next to the property first and at the root second,
// the same order visibility rules use. Results stay keyed by the dependency
// path as declared.
func ExtractRelevantInputsAt(inputs map[string]any, currentPath string, deps []string) map[string]any {
	relevant := make(map[string]any, len(deps))
	for _, dep := range deps {
		if dep == domain.VersionKey {
			continue
		}
		if currentPath != "" {
			if v, ok := paths.Get(inputs, paths.Join(currentPath, dep)); ok {
				relevant[dep] = v
				continue
			}
		}
		if v, ok := paths.Get(inputs, dep); ok {
			relevant[dep] = v
		}
	}
	return relevant
}

// HasRelevantInputsChanged reports whether the projections of oldInputs and
// newInputs on deps differ.
func HasRelevantInputsChanged(oldInputs, newInputs map[string]any, deps []string) bool {
	return canonical(ExtractRelevantInputs(oldInputs, deps)) != canonical(ExtractRelevantInputs(newInputs, deps))
}

// CacheKey builds the content-addressed key of a load: [nodeName, methodName, relevant].
func CacheKey(nodeName, methodName string, relevant map[string]any) string {
	return canonical([]any{nodeName, methodName, relevant})
}

// canonical serializes v with sorted object keys. Unencodable values yield
// an error marker, which compares unequal to any valid encoding.
func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "!" + err.Error()
	}
	return string(data)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
