package condition

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func cnd(op string, operand any) map[string]any {
	return map[string]any{"_cnd": map[string]any{op: operand}}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		cond  domain.Condition
		value any
		want  bool
	}{
		{"literal string match", domain.Literal("advanced"), "advanced", true},
		{"literal string mismatch", domain.Literal("advanced"), "basic", false},
		{"literal is strict", domain.Literal("3"), 3, false},
		{"literal numbers across kinds", domain.Literal(3), json.Number("3"), true},
		{"literal null", domain.Literal(nil), nil, true},
		{"literal null vs empty string", domain.Literal(nil), "", false},
		{"eq", domain.Eq(true), true, true},
		{"not", domain.Not("local"), "openai", true},
		{"not same", domain.Not("local"), "local", false},

		{"exists value", domain.Exists(), "x", true},
		{"exists zero", domain.Exists(), 0, true},
		{"exists false bool", domain.Exists(), false, true},
		{"exists nil", domain.Exists(), nil, false},
		{"exists empty string", domain.Exists(), "", false},

		{"gte numeric", domain.Gte(2), 2, true},
		{"gt numeric", domain.Gt(2), 2, false},
		{"lt numeric string coerces", domain.Lt(10), "9", true},
		{"lte numeric", domain.Lte(2.5), 3, false},
		{"gt falls back to strings", domain.Gt("b"), "c", true},
		{"lt mixed falls back to strings", domain.Lt("abc"), 10, true},
		{"gte nil never matches", domain.Gte(0), nil, false},
		{"lte nil never matches", domain.Lte(0), nil, false},

		{"between inside", domain.Between(2, 5), 3, true},
		{"between lower edge", domain.Between(2, 5), 2, true},
		{"between upper edge", domain.Between(2, 5), 5, true},
		{"between outside", domain.Between(2, 5), 7, false},
		{"between strings", domain.Between("b", "d"), "c", true},

		{"startsWith", domain.StartsWith("gpt-"), "gpt-4o", true},
		{"startsWith non string", domain.StartsWith("1"), 12, false},
		{"endsWith", domain.EndsWith(".json"), "config.json", true},
		{"includes", domain.Includes("mini"), "gpt-4o-mini", true},
		{"includes non string", domain.Includes("a"), []any{"a"}, false},

		{"regex match", domain.Regex("^abc"), "abcdef", true},
		{"regex miss", domain.Regex("^abc"), "xabc", false},
		{"regex invalid", domain.Regex("(unclosed"), "(unclosed", false},
		{"regex non string value", domain.Regex(".*"), 5, false},

		{"invalid tag", domain.Condition{Tag: domain.TagInvalid}, "x", false},
		{"zero value", domain.Condition{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.cond, tt.value))
		})
	}
}

func TestEvaluateAny_WireForms(t *testing.T) {
	assert.True(t, EvaluateAny(cnd("between", map[string]any{"from": 2, "to": 5}), 3))
	assert.False(t, EvaluateAny(cnd("between", map[string]any{"from": 2, "to": 5}), 7))
	assert.True(t, EvaluateAny(cnd("regex", "^abc"), "abcdef"))
	assert.False(t, EvaluateAny(cnd("regex", "[a-"), "abc"))
	assert.False(t, EvaluateAny(cnd("between", "2..5"), 3))
	assert.False(t, EvaluateAny(map[string]any{"unexpected": true}, true))
	assert.True(t, EvaluateAny("advanced", "advanced"))
}

func TestEvaluate_RegexCacheStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.True(t, Evaluate(domain.Regex(`^\d+$`), "123"))
		assert.False(t, Evaluate(domain.Regex(`(?<=x)`), "x"))
	}
}

func TestAnyMatch(t *testing.T) {
	conds := []domain.Condition{domain.Literal("a"), domain.Literal("b")}
	assert.True(t, AnyMatch(conds, "b"))
	assert.False(t, AnyMatch(conds, "c"))
	assert.False(t, AnyMatch(nil, "a"))
}
