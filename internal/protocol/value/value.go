package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrTypeMismatch = errors.New("value: type mismatch")
	ErrUnsupported  = errors.New("value: unsupported Go value")
)

// Kind discriminates the variants a Value can hold.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the interchange types carried in message
// bodies. The zero Value is absent, which is distinct from every present
// variant including null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

func Absent() Value          { return Value{} }
func Null() Value            { return Value{kind: KindNull} }
func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }
func Int(v int64) Value      { return Value{kind: KindInt, i: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, f: v} }
func String(v string) Value  { return Value{kind: KindString, s: v} }
func Array(vs ...Value) Value {
	return Value{kind: KindArray, arr: vs}
}

// Obj wraps an Object. A nil Object is treated as empty.
func Obj(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }
func (v Value) IsNull() bool   { return v.kind == KindNull }

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: have %s, want bool", ErrTypeMismatch, v.kind)
	}
	return v.b, nil
}

// AsInt accepts an integral float as well; JSON codecs cannot always
// distinguish 2 from 2.0 on the wire.
func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return int64(v.f), nil
		}
	}
	return 0, fmt.Errorf("%w: have %s, want int", ErrTypeMismatch, v.kind)
}

// AsFloat accepts ints, widening them.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	}
	return 0, fmt.Errorf("%w: have %s, want float", ErrTypeMismatch, v.kind)
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("%w: have %s, want string", ErrTypeMismatch, v.kind)
	}
	return v.s, nil
}

func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, fmt.Errorf("%w: have %s, want array", ErrTypeMismatch, v.kind)
	}
	return v.arr, nil
}

func (v Value) AsObject() (*Object, error) {
	if v.kind != KindObject {
		return nil, fmt.Errorf("%w: have %s, want object", ErrTypeMismatch, v.kind)
	}
	return v.obj, nil
}

// Equal compares two values structurally. Int and float compare across kinds
// when numerically equal, matching the accessor widening rules.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		vn, vok := v.numeric()
		on, ook := other.numeric()
		return vok && ook && vn == on
	}
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(other.obj)
	}
	return false
}

func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Interface lowers the value to a plain Go tree for codec serialization.
// Absent lowers to nil; callers omit absent members before reaching here.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		return v.obj.asMap()
	default:
		return nil
	}
}

// FromAny lifts a decoded codec tree into a Value. json.Number is resolved
// to int when it parses exactly, float otherwise.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return Absent(), fmt.Errorf("%w: uint64 overflow", ErrUnsupported)
		}
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Absent(), fmt.Errorf("%w: bad number %q", ErrUnsupported, t.String())
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Absent(), err
			}
			arr[i] = v
		}
		return Array(arr...), nil
	case map[string]any:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			v, err := FromAny(t[k])
			if err != nil {
				return Absent(), err
			}
			o.Set(k, v)
		}
		return Obj(o), nil
	case map[any]any:
		// CBOR can decode maps with non-string keys; only string keys are
		// representable here.
		o := NewObject()
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return Absent(), fmt.Errorf("%w: non-string map key %v", ErrUnsupported, k)
			}
			v, err := FromAny(e)
			if err != nil {
				return Absent(), err
			}
			o.Set(ks, v)
		}
		o.sortMembers()
		return Obj(o), nil
	default:
		return Absent(), fmt.Errorf("%w: %T", ErrUnsupported, raw)
	}
}
