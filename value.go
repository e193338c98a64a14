package gelfbuf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMap
	KindList
)

// Value is a typed payload for additional per-record fields and for values
// read from declarative configuration. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
	l    []Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map returns a nested-map Value. The map is used as-is, not copied.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// List returns a sequence Value.
func List(items ...Value) Value { return Value{kind: KindList, l: items} }

// Kind reports the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Interface lowers the Value to plain Go types (string, int64, float64, bool,
// nil, map[string]interface{}, []interface{}) for wire encoding.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	case KindList:
		out := make([]interface{}, len(v.l))
		for i, item := range v.l {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// UnmarshalYAML decodes any YAML scalar, mapping or sequence into a Value.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	val, err := valueFromInterface(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint64:
		return Int(int64(x)), nil
	case float64:
		return Float(x), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			val, err := valueFromInterface(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return Map(m), nil
	case []interface{}:
		l := make([]Value, len(x))
		for i, item := range x {
			val, err := valueFromInterface(item)
			if err != nil {
				return Value{}, err
			}
			l[i] = val
		}
		return List(l...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
