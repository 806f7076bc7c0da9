package paths

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tree := map[string]any{
		"a": map[string]any{
			"b": []any{map[string]any{"c": 1}},
		},
		"empty":  nil,
		"scalar": "text",
	}

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"nested array index", "a.b.0.c", 1, true},
		{"whole subtree", "a.b.0", map[string]any{"c": 1}, true},
		{"missing key", "a.x", nil, false},
		{"index out of range", "a.b.3.c", nil, false},
		{"non numeric index", "a.b.first", nil, false},
		{"explicit null", "empty", nil, true},
		{"through explicit null", "empty.deeper.still", nil, true},
		{"through scalar", "scalar.length", nil, false},
		{"root", "", tree, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Get(tree, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_RoundTrip(t *testing.T) {
	tree := map[string]any{"a": map[string]any{"b": []any{map[string]any{"c": 1}}}}

	require.NoError(t, Set(tree, "a.b.0.c", 42))
	got, ok := Get(tree, "a.b.0.c")
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestSet_SynthesizesContainers(t *testing.T) {
	tree := map[string]any{}

	require.NoError(t, Set(tree, "headers.0.name", "Accept"))
	require.NoError(t, Set(tree, "headers.1.name", "Authorization"))
	require.NoError(t, Set(tree, "options.timeout", 30))

	want := map[string]any{
		"headers": []any{map[string]any{"name": "Accept"}, map[string]any{"name": "Authorization"}},
		"options": map[string]any{"timeout": 30},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("Set() mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_ReplacesScalarInTheWay(t *testing.T) {
	tree := map[string]any{"a": "scalar"}
	require.NoError(t, Set(tree, "a.b", true))
	assert.Equal(t, map[string]any{"b": true}, tree["a"])
}

func TestSet_KeepsNumericKeysOnObjects(t *testing.T) {
	tree := map[string]any{"codes": map[string]any{"200": "ok"}}
	require.NoError(t, Set(tree, "codes.404", "missing"))
	assert.Equal(t, map[string]any{"200": "ok", "404": "missing"}, tree["codes"])
}

func TestSet_RefusesSparseIndex(t *testing.T) {
	tests := []struct {
		name string
		tree func() map[string]any
		path string
	}{
		{"huge index on a new array", func() map[string]any { return map[string]any{} }, "items.20000000"},
		{"gap after the last item", func() map[string]any { return map[string]any{"items": []any{"a"}} }, "items.2"},
		{"nested gap", func() map[string]any {
			return map[string]any{"items": []any{map[string]any{"tags": []any{}}}}
		}, "items.0.tags.3"},
		{"gap under a new object", func() map[string]any { return map[string]any{} }, "options.list.1.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := tt.tree()
			err := Set(tree, tt.path, "x")
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
			if diff := cmp.Diff(tt.tree(), tree); diff != "" {
				t.Errorf("tree changed on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSet_AppendsAtEnd(t *testing.T) {
	tree := map[string]any{"items": []any{"a"}}
	require.NoError(t, Set(tree, "items.1", "b"))
	assert.Equal(t, []any{"a", "b"}, tree["items"])
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a.b", Join("a", "", "b"))
	assert.Equal(t, "b", Join("", "b"))
	assert.Equal(t, "items.3", Item("items", 3))
}
