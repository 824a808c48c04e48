package schema

import (
	"fmt"

	"github.com/danmuck/duplex/internal/protocol/value"
)

// Field constructors. Each takes an accessor returning a pointer into the
// message so one closure serves both encode and decode. The Opt variants
// take a pointer-to-pointer: nil means absent on the wire.

func BoolField[T any](name string, get func(*T) *bool) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			return value.Bool(*get(m))
		},
		decode: func(m *T, v value.Value) error {
			b, err := v.AsBool()
			if err != nil {
				return err
			}
			*get(m) = b
			return nil
		},
	}
}

func IntField[T any](name string, get func(*T) *int64) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			return value.Int(*get(m))
		},
		decode: func(m *T, v value.Value) error {
			n, err := v.AsInt()
			if err != nil {
				return err
			}
			*get(m) = n
			return nil
		},
	}
}

func FloatField[T any](name string, get func(*T) *float64) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			return value.Float(*get(m))
		},
		decode: func(m *T, v value.Value) error {
			f, err := v.AsFloat()
			if err != nil {
				return err
			}
			*get(m) = f
			return nil
		},
	}
}

func StringField[T any](name string, get func(*T) *string) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			return value.String(*get(m))
		},
		decode: func(m *T, v value.Value) error {
			s, err := v.AsString()
			if err != nil {
				return err
			}
			*get(m) = s
			return nil
		},
	}
}

func IntArrayField[T any](name string, get func(*T) *[]int64) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			src := *get(m)
			elems := make([]value.Value, len(src))
			for i, n := range src {
				elems[i] = value.Int(n)
			}
			return value.Array(elems...)
		},
		decode: func(m *T, v value.Value) error {
			arr, err := v.AsArray()
			if err != nil {
				return err
			}
			out := make([]int64, len(arr))
			for i, e := range arr {
				n, err := e.AsInt()
				if err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = n
			}
			*get(m) = out
			return nil
		},
	}
}

func StringArrayField[T any](name string, get func(*T) *[]string) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			src := *get(m)
			elems := make([]value.Value, len(src))
			for i, s := range src {
				elems[i] = value.String(s)
			}
			return value.Array(elems...)
		},
		decode: func(m *T, v value.Value) error {
			arr, err := v.AsArray()
			if err != nil {
				return err
			}
			out := make([]string, len(arr))
			for i, e := range arr {
				s, err := e.AsString()
				if err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = s
			}
			*get(m) = out
			return nil
		},
	}
}

// ObjectField binds an open-ended ordered mapping. A nil object encodes as
// an empty mapping, not as absent.
func ObjectField[T any](name string, get func(*T) **value.Object) FieldSpec[T] {
	return FieldSpec[T]{
		Name: name,
		encode: func(m *T) value.Value {
			return value.Obj(*get(m))
		},
		decode: func(m *T, v value.Value) error {
			o, err := v.AsObject()
			if err != nil {
				return err
			}
			*get(m) = o
			return nil
		},
	}
}

func OptBoolField[T any](name string, get func(*T) **bool) FieldSpec[T] {
	return FieldSpec[T]{
		Name:     name,
		Optional: true,
		encode: func(m *T) value.Value {
			p := *get(m)
			if p == nil {
				return value.Absent()
			}
			return value.Bool(*p)
		},
		decode: func(m *T, v value.Value) error {
			b, err := v.AsBool()
			if err != nil {
				return err
			}
			*get(m) = &b
			return nil
		},
	}
}

func OptIntField[T any](name string, get func(*T) **int64) FieldSpec[T] {
	return FieldSpec[T]{
		Name:     name,
		Optional: true,
		encode: func(m *T) value.Value {
			p := *get(m)
			if p == nil {
				return value.Absent()
			}
			return value.Int(*p)
		},
		decode: func(m *T, v value.Value) error {
			n, err := v.AsInt()
			if err != nil {
				return err
			}
			*get(m) = &n
			return nil
		},
	}
}

func OptFloatField[T any](name string, get func(*T) **float64) FieldSpec[T] {
	return FieldSpec[T]{
		Name:     name,
		Optional: true,
		encode: func(m *T) value.Value {
			p := *get(m)
			if p == nil {
				return value.Absent()
			}
			return value.Float(*p)
		},
		decode: func(m *T, v value.Value) error {
			f, err := v.AsFloat()
			if err != nil {
				return err
			}
			*get(m) = &f
			return nil
		},
	}
}

func OptStringField[T any](name string, get func(*T) **string) FieldSpec[T] {
	return FieldSpec[T]{
		Name:     name,
		Optional: true,
		encode: func(m *T) value.Value {
			p := *get(m)
			if p == nil {
				return value.Absent()
			}
			return value.String(*p)
		},
		decode: func(m *T, v value.Value) error {
			s, err := v.AsString()
			if err != nil {
				return err
			}
			*get(m) = &s
			return nil
		},
	}
}

// AnyField binds a raw dynamic value with no kind constraint. Absent values
// round-trip as absent, so the field is inherently optional.
func AnyField[T any](name string, get func(*T) *value.Value) FieldSpec[T] {
	return FieldSpec[T]{
		Name:     name,
		Optional: true,
		encode: func(m *T) value.Value {
			return *get(m)
		},
		decode: func(m *T, v value.Value) error {
			*get(m) = v
			return nil
		},
	}
}
