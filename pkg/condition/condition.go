// Package condition evaluates display conditions against resolved input values.
//
// Evaluation never fails: malformed predicates, invalid patterns and
// mismatched operand types all evaluate to false.
package condition

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/weave/pkg/domain"
)

// Evaluate reports whether value satisfies c.
func Evaluate(c domain.Condition, value any) bool {
	switch c.Tag {
	case domain.TagLiteral, domain.TagEq:
		return Equal(value, c.Value)
	case domain.TagNot:
		return !Equal(value, c.Value)
	case domain.TagExists:
		return exists(value)
	case domain.TagGte:
		return ordered(value, c.Value, func(n int) bool { return n >= 0 })
	case domain.TagLte:
		return ordered(value, c.Value, func(n int) bool { return n <= 0 })
	case domain.TagGt:
		return ordered(value, c.Value, func(n int) bool { return n > 0 })
	case domain.TagLt:
		return ordered(value, c.Value, func(n int) bool { return n < 0 })
	case domain.TagBetween:
		return ordered(value, c.Range.From, func(n int) bool { return n >= 0 }) &&
			ordered(value, c.Range.To, func(n int) bool { return n <= 0 })
	case domain.TagStartsWith:
		return stringOp(value, c.Value, strings.HasPrefix)
	case domain.TagEndsWith:
		return stringOp(value, c.Value, strings.HasSuffix)
	case domain.TagIncludes:
		return stringOp(value, c.Value, strings.Contains)
	case domain.TagRegex:
		return matchRegex(value, c.Value)
	default:
		return false
	}
}

// EvaluateAny decodes the wire form of a condition and evaluates it.
func EvaluateAny(raw any, value any) bool {
	return Evaluate(domain.ParseCondition(raw), value)
}

// AnyMatch reports whether at least one of conds is satisfied by value.
func AnyMatch(conds []domain.Condition, value any) bool {
	for _, c := range conds {
		if Evaluate(c, value) {
			return true
		}
	}
	return false
}

// Equal is strict equality over input values: numbers compare by value
// across Go numeric kinds, everything else must share its type.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func exists(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// ordered applies test to the ordering of a against b. A missing operand
// never satisfies an ordering.
func ordered(a, b any, test func(int) bool) bool {
	if a == nil || b == nil {
		return false
	}
	return test(compare(a, b))
}

// compare orders a and b numerically when both coerce to numbers and
// lexicographically otherwise.
func compare(a, b any) int {
	fa, okA := coerce(a)
	fb, okB := coerce(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(toString(a), toString(b))
}

func stringOp(value, operand any, op func(s, substr string) bool) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	needle, ok := operand.(string)
	if !ok {
		return false
	}
	return op(s, needle)
}

var regexCache sync.Map // pattern -> *regexp.Regexp (nil when invalid)

func matchRegex(value, pattern any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	p, ok := pattern.(string)
	if !ok {
		return false
	}

	cached, found := regexCache.Load(p)
	if !found {
		re, err := regexp.Compile(p)
		if err != nil {
			re = nil
		}
		cached, _ = regexCache.LoadOrStore(p, re)
	}
	re, _ := cached.(*regexp.Regexp)
	if re == nil {
		return false
	}
	return re.MatchString(s)
}

// number converts Go numeric kinds and json.Number. Strings are not numbers here.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// coerce is number plus numeric strings ("3", " 2.5 ").
func coerce(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprint(v)
}
