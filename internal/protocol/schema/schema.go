// Package schema binds concrete message types to the dynamic value model.
//
// Every message type is described once, at registration, by an ordered field
// table: name, required/optional flag, and encode/decode closures. There is
// no runtime struct introspection; the table is the single source of truth
// for what a type looks like on the wire.
package schema

import (
	"errors"
	"fmt"

	"github.com/danmuck/duplex/internal/protocol/value"
)

var (
	ErrMissingField   = errors.New("schema: missing required field")
	ErrDuplicateType  = errors.New("schema: discriminator already registered")
	ErrUnknownType    = errors.New("schema: unknown discriminator")
	ErrWrongGoType    = errors.New("schema: message has wrong Go type")
	ErrBodyNotObject  = errors.New("schema: body is not an object")
)

// DecodeError reports a failure decoding one field of a typed message. It
// unwraps to ErrMissingField or value.ErrTypeMismatch.
type DecodeError struct {
	Discriminator string
	Field         string
	Err           error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("schema: %s field %q: %v", e.Discriminator, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FieldSpec describes one wire field of message type T.
//
// encode returns the field's current value; returning an absent value omits
// the field from the wire form, which is only legal for optional fields.
// decode stores a received value into the message.
type FieldSpec[T any] struct {
	Name     string
	Optional bool
	encode   func(*T) value.Value
	decode   func(*T, value.Value) error
}

// TypeInfo is the complete wire descriptor for message type T.
type TypeInfo[T any] struct {
	discriminator string
	fields        []FieldSpec[T]
}

// NewTypeInfo builds a descriptor. Field order is the encode order.
func NewTypeInfo[T any](discriminator string, fields ...FieldSpec[T]) *TypeInfo[T] {
	return &TypeInfo[T]{discriminator: discriminator, fields: fields}
}

func (ti *TypeInfo[T]) Discriminator() string { return ti.discriminator }

// Encode lowers msg to a value object following the field table. Absent
// optional fields are omitted entirely.
func (ti *TypeInfo[T]) Encode(msg *T) (value.Value, error) {
	o := value.NewObject()
	for _, f := range ti.fields {
		v := f.encode(msg)
		if v.IsAbsent() && !f.Optional {
			return value.Absent(), &DecodeError{
				Discriminator: ti.discriminator,
				Field:         f.Name,
				Err:           ErrMissingField,
			}
		}
		o.Set(f.Name, v)
	}
	return value.Obj(o), nil
}

// Decode lifts a value object into a fresh message. A missing required field
// or a kind mismatch at any field (including nested elements) fails with a
// DecodeError naming the field. An absent or null body decodes as an empty
// object so types whose fields are all optional accept an omitted body.
func (ti *TypeInfo[T]) Decode(v value.Value) (*T, error) {
	var o *value.Object
	switch {
	case v.IsAbsent() || v.IsNull():
		o = value.NewObject()
	default:
		obj, err := v.AsObject()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBodyNotObject, ti.discriminator, err)
		}
		o = obj
	}

	msg := new(T)
	for _, f := range ti.fields {
		fv, ok := o.Get(f.Name)
		if !ok {
			if f.Optional {
				continue
			}
			return nil, &DecodeError{
				Discriminator: ti.discriminator,
				Field:         f.Name,
				Err:           ErrMissingField,
			}
		}
		if err := f.decode(msg, fv); err != nil {
			return nil, &DecodeError{
				Discriminator: ti.discriminator,
				Field:         f.Name,
				Err:           err,
			}
		}
	}
	return msg, nil
}

// Type is the untyped view of a TypeInfo, used where descriptors of
// differing Go types share a table.
type Type interface {
	Discriminator() string
	EncodeAny(msg any) (value.Value, error)
	DecodeAny(v value.Value) (any, error)
}

func (ti *TypeInfo[T]) EncodeAny(msg any) (value.Value, error) {
	m, ok := msg.(*T)
	if !ok {
		return value.Absent(), fmt.Errorf("%w: %s: got %T", ErrWrongGoType, ti.discriminator, msg)
	}
	return ti.Encode(m)
}

func (ti *TypeInfo[T]) DecodeAny(v value.Value) (any, error) {
	return ti.Decode(v)
}

// RequestType pairs a request descriptor with its one response descriptor.
type RequestType[Req, Resp any] struct {
	Request  *TypeInfo[Req]
	Response *TypeInfo[Resp]
}

func NewRequestType[Req, Resp any](req *TypeInfo[Req], resp *TypeInfo[Resp]) *RequestType[Req, Resp] {
	return &RequestType[Req, Resp]{Request: req, Response: resp}
}
