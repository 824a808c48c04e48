package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/duplex/internal/protocol/value"
)

var (
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")
	ErrUnknownKind       = errors.New("protocol: unknown message kind")
)

// Kind identifies the envelope shape.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRequest
	KindResponse
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "invalid"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "request":
		return KindRequest, nil
	case "response":
		return KindResponse, nil
	case "event":
		return KindEvent, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Wire member names, debug-adapter shaped.
const (
	fieldSeq        = "seq"
	fieldType       = "type"
	fieldCommand    = "command"
	fieldEvent      = "event"
	fieldArguments  = "arguments"
	fieldBody       = "body"
	fieldRequestSeq = "request_seq"
	fieldSuccess    = "success"
	fieldMessage    = "message"
)

// Envelope is one transmitted message. RequestSeq, Success and ErrorMessage
// are meaningful only when Kind is KindResponse.
type Envelope struct {
	Seq           uint64
	Kind          Kind
	Discriminator string
	Body          value.Value
	RequestSeq    uint64
	Success       bool
	ErrorMessage  string
}

// Encode lowers the envelope to a dynamic value object. An absent body is
// omitted from the wire form entirely.
func (e Envelope) Encode() (value.Value, error) {
	if e.Seq == 0 {
		return value.Absent(), fmt.Errorf("%w: zero seq", ErrMalformedEnvelope)
	}
	if e.Discriminator == "" {
		return value.Absent(), fmt.Errorf("%w: empty discriminator", ErrMalformedEnvelope)
	}

	o := value.NewObject()
	o.Set(fieldSeq, value.Int(int64(e.Seq)))
	o.Set(fieldType, value.String(e.Kind.String()))

	switch e.Kind {
	case KindRequest:
		o.Set(fieldCommand, value.String(e.Discriminator))
		o.Set(fieldArguments, e.Body)
	case KindResponse:
		if e.RequestSeq == 0 {
			return value.Absent(), fmt.Errorf("%w: response without request_seq", ErrMalformedEnvelope)
		}
		o.Set(fieldCommand, value.String(e.Discriminator))
		o.Set(fieldRequestSeq, value.Int(int64(e.RequestSeq)))
		o.Set(fieldSuccess, value.Bool(e.Success))
		if !e.Success {
			o.Set(fieldMessage, value.String(e.ErrorMessage))
		}
		o.Set(fieldBody, e.Body)
	case KindEvent:
		o.Set(fieldEvent, value.String(e.Discriminator))
		o.Set(fieldBody, e.Body)
	default:
		return value.Absent(), fmt.Errorf("%w: kind %d", ErrUnknownKind, e.Kind)
	}
	return value.Obj(o), nil
}

// DecodeEnvelope lifts a received dynamic value back into an envelope.
// Anything that does not satisfy the envelope contract is reported as
// ErrMalformedEnvelope; the body itself is passed through untouched for the
// schema layer to interpret.
func DecodeEnvelope(v value.Value) (Envelope, error) {
	o, err := v.AsObject()
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: not an object: %v", ErrMalformedEnvelope, err)
	}

	seq, err := requiredInt(o, fieldSeq)
	if err != nil {
		return Envelope{}, err
	}
	if seq <= 0 {
		return Envelope{}, fmt.Errorf("%w: non-positive seq %d", ErrMalformedEnvelope, seq)
	}

	kindStr, err := requiredString(o, fieldType)
	if err != nil {
		return Envelope{}, err
	}
	kind, err := ParseKind(kindStr)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	env := Envelope{Seq: uint64(seq), Kind: kind}

	switch kind {
	case KindRequest:
		if env.Discriminator, err = requiredString(o, fieldCommand); err != nil {
			return Envelope{}, err
		}
		env.Body, _ = o.Get(fieldArguments)
	case KindResponse:
		if env.Discriminator, err = requiredString(o, fieldCommand); err != nil {
			return Envelope{}, err
		}
		reqSeq, err := requiredInt(o, fieldRequestSeq)
		if err != nil {
			return Envelope{}, err
		}
		if reqSeq <= 0 {
			return Envelope{}, fmt.Errorf("%w: non-positive request_seq %d", ErrMalformedEnvelope, reqSeq)
		}
		env.RequestSeq = uint64(reqSeq)
		successVal, ok := o.Get(fieldSuccess)
		if !ok {
			return Envelope{}, fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, fieldSuccess)
		}
		if env.Success, err = successVal.AsBool(); err != nil {
			return Envelope{}, fmt.Errorf("%w: field %q: %v", ErrMalformedEnvelope, fieldSuccess, err)
		}
		if msg, ok := o.Get(fieldMessage); ok {
			if env.ErrorMessage, err = msg.AsString(); err != nil {
				return Envelope{}, fmt.Errorf("%w: field %q: %v", ErrMalformedEnvelope, fieldMessage, err)
			}
		}
		env.Body, _ = o.Get(fieldBody)
	case KindEvent:
		if env.Discriminator, err = requiredString(o, fieldEvent); err != nil {
			return Envelope{}, err
		}
		env.Body, _ = o.Get(fieldBody)
	}
	return env, nil
}

func requiredInt(o *value.Object, key string) (int64, error) {
	v, ok := o.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, key)
	}
	n, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %v", ErrMalformedEnvelope, key, err)
	}
	return n, nil
}

func requiredString(o *value.Object, key string) (string, error) {
	v, ok := o.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, key)
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("%w: field %q: %v", ErrMalformedEnvelope, key, err)
	}
	return s, nil
}
