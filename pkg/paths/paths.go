// Package paths resolves dot-separated paths over trees of user input values.
//
// A tree is built from map[string]any objects, []any arrays and scalar leaves.
// Numeric segments address array indices: "a.b.0.c".
package paths

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins path segments.
const Separator = "."

// Get walks tree along path.
//
// It returns (nil, true) when an intermediate value is explicitly null, and
// (nil, false) when the path does not exist or crosses a scalar before it is
// exhausted. Callers treat the latter as "undefined".
func Get(tree any, path string) (any, bool) {
	if path == "" {
		return tree, true
	}

	current := tree
	for _, seg := range strings.Split(path, Separator) {
		if current == nil {
			return nil, true
		}
		switch c := current.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, ok := index(seg)
			if !ok || idx >= len(c) {
				return nil, false
			}
			current = c[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// ErrIndexOutOfRange is returned by Set when an index skips past the end of
// an array. Arrays grow by at most one item per write.
var ErrIndexOutOfRange = errors.New("array index out of range")

// Set writes value at path inside tree, creating missing containers on the way.
// An array is created when the next segment is a numeric index, an object otherwise.
// Existing scalars in the way are replaced. The tree is mutated in place.
//
// An index may address an existing item or the one right after the last.
// Anything further fails with ErrIndexOutOfRange and leaves tree untouched.
func Set(tree map[string]any, path string, value any) error {
	if tree == nil || path == "" {
		return nil
	}
	segs := strings.Split(path, Separator)
	head := segs[0]
	if len(segs) == 1 {
		tree[head] = value
		return nil
	}
	child, err := setIn(tree[head], segs[1:], value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	tree[head] = child
	return nil
}

// setIn returns the container holding value at segs, which may be a new or
// grown value that the caller must store back. Nothing is stored on error.
func setIn(container any, segs []string, value any) (any, error) {
	seg := segs[0]

	arr, isArr := container.([]any)
	obj, isObj := container.(map[string]any)
	if !isArr && !isObj {
		if _, numeric := index(seg); numeric {
			isArr = true
		} else {
			obj, isObj = make(map[string]any), true
		}
	}

	if isArr {
		idx, ok := index(seg)
		if !ok {
			// Non numeric key on an array: replace it with an object.
			return setIn(make(map[string]any), segs, value)
		}
		if idx > len(arr) {
			return nil, fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, idx, len(arr))
		}

		var item any
		if idx < len(arr) {
			item = arr[idx]
		}
		if len(segs) > 1 {
			child, err := setIn(item, segs[1:], value)
			if err != nil {
				return nil, err
			}
			item = child
		} else {
			item = value
		}
		if idx == len(arr) {
			return append(arr, item), nil
		}
		arr[idx] = item
		return arr, nil
	}

	if len(segs) == 1 {
		obj[seg] = value
		return obj, nil
	}
	child, err := setIn(obj[seg], segs[1:], value)
	if err != nil {
		return nil, err
	}
	obj[seg] = child
	return obj, nil
}

// Join composes a child path. Empty parts are skipped.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}

// Item composes the path of an array item.
func Item(parent string, i int) string {
	return Join(parent, strconv.Itoa(i))
}

func index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}
