package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ConditionTag identifies the variant carried by a Condition.
type ConditionTag string

const (
	TagLiteral    ConditionTag = "literal"
	TagEq         ConditionTag = "eq"
	TagNot        ConditionTag = "not"
	TagExists     ConditionTag = "exists"
	TagGte        ConditionTag = "gte"
	TagLte        ConditionTag = "lte"
	TagGt         ConditionTag = "gt"
	TagLt         ConditionTag = "lt"
	TagBetween    ConditionTag = "between"
	TagStartsWith ConditionTag = "startsWith"
	TagEndsWith   ConditionTag = "endsWith"
	TagIncludes   ConditionTag = "includes"
	TagRegex      ConditionTag = "regex"

	// TagInvalid marks a shape that could not be decoded. It never matches.
	TagInvalid ConditionTag = "invalid"
)

// PredicateKey is the wire key that wraps a structured predicate.
const PredicateKey = "_cnd"

// Range is the ordered operand of a between predicate.
type Range struct {
	From any `json:"from" yaml:"from" mapstructure:"from"`
	To   any `json:"to" yaml:"to" mapstructure:"to"`
}

// Condition is a display condition: either a literal compared by equality,
// or a tagged predicate. The zero value is an invalid condition.
type Condition struct {
	Tag ConditionTag
	// Value is the literal or the predicate operand. Unused by between.
	Value any
	Range Range
}

func Literal(v any) Condition { return Condition{Tag: TagLiteral, Value: v} }
func Eq(v any) Condition { return Condition{Tag: TagEq, Value: v} }
func Not(v any) Condition { return Condition{Tag: TagNot, Value: v} }
func Exists() Condition { return Condition{Tag: TagExists, Value: true} }
func Gte(v any) Condition { return Condition{Tag: TagGte, Value: v} }
func Lte(v any) Condition { return Condition{Tag: TagLte, Value: v} }
func Gt(v any) Condition { return Condition{Tag: TagGt, Value: v} }
func Lt(v any) Condition { return Condition{Tag: TagLt, Value: v} }
func Between(from, to any) Condition { return Condition{Tag: TagBetween, Range: Range{From: from, To: to}} }
func StartsWith(s string) Condition { return Condition{Tag: TagStartsWith, Value: s} }
func EndsWith(s string) Condition { return Condition{Tag: TagEndsWith, Value: s} }
func Includes(s string) Condition { return Condition{Tag: TagIncludes, Value: s} }
func Regex(pattern string) Condition { return Condition{Tag: TagRegex, Value: pattern} }
func invalidCondition(raw any) Condition { return Condition{Tag: TagInvalid, Value: raw} }

// ParseCondition decodes the wire form of a condition: a primitive literal
// or {"_cnd": {"<tag>": operand}}. Shapes it does not recognise decode to
// TagInvalid instead of failing.
func ParseCondition(raw any) Condition {
	if raw == nil || IsPrimitive(raw) {
		return Literal(raw)
	}

	outer, ok := asStringMap(raw)
	if !ok || len(outer) != 1 {
		return invalidCondition(raw)
	}
	inner, ok := asStringMap(outer[PredicateKey])
	if !ok || len(inner) != 1 {
		return invalidCondition(raw)
	}

	for key, operand := range inner {
		tag := ConditionTag(key)
		switch tag {
		case TagEq, TagNot, TagGte, TagLte, TagGt, TagLt:
			if operand != nil && !IsPrimitive(operand) {
				return invalidCondition(raw)
			}
			return Condition{Tag: tag, Value: operand}
		case TagExists:
			return Exists()
		case TagStartsWith, TagEndsWith, TagIncludes, TagRegex:
			s, ok := operand.(string)
			if !ok {
				return invalidCondition(raw)
			}
			return Condition{Tag: tag, Value: s}
		case TagBetween:
			m, ok := asStringMap(operand)
			if !ok {
				return invalidCondition(raw)
			}
			_, hasFrom := m["from"]
			_, hasTo := m["to"]
			if !hasFrom || !hasTo {
				return invalidCondition(raw)
			}
			var r Range
			if err := mapstructure.Decode(m, &r); err != nil {
				return invalidCondition(raw)
			}
			return Condition{Tag: TagBetween, Range: r}
		}
	}
	return invalidCondition(raw)
}

// Wire returns the JSON-compatible representation of the condition.
func (c Condition) Wire() any {
	switch c.Tag {
	case TagLiteral:
		return c.Value
	case TagInvalid, "":
		return c.Value
	case TagBetween:
		return map[string]any{PredicateKey: map[string]any{
			string(TagBetween): map[string]any{"from": c.Range.From, "to": c.Range.To},
		}}
	default:
		return map[string]any{PredicateKey: map[string]any{string(c.Tag): c.Value}}
	}
}

func (c Condition) String() string {
	if c.Tag == TagBetween {
		return fmt.Sprintf("between(%v, %v)", c.Range.From, c.Range.To)
	}
	return fmt.Sprintf("%s(%v)", c.Tag, c.Value)
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Wire())
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*c = ParseCondition(raw)
	return nil
}

func (c Condition) MarshalYAML() (any, error) {
	return c.Wire(), nil
}

func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = ParseCondition(raw)
	return nil
}

var conditionType = reflect.TypeOf(Condition{})

// ConditionDecodeHook lets mapstructure decode raw condition values into Condition.
func ConditionDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != conditionType {
			return data, nil
		}
		if c, ok := data.(Condition); ok {
			return c, nil
		}
		return ParseCondition(data), nil
	}
}

// IsPrimitive reports whether v is a string, bool or number.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, json.Number:
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
