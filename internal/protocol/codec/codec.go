// Package codec serializes envelope value trees to bytes and back. The
// session core treats this boundary as opaque; both peers must agree on the
// codec out of band.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/danmuck/duplex/internal/protocol/value"
)

var ErrUnknownCodec = errors.New("codec: unknown codec name")

// Codec converts between a dynamic value tree and its wire bytes.
type Codec interface {
	Name() string
	Marshal(v value.Value) ([]byte, error)
	Unmarshal(data []byte) (value.Value, error)
}

// ByName resolves a codec from its config name.
func ByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// JSON is the default codec.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v value.Value) ([]byte, error) {
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("codec: marshal json: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return value.Absent(), fmt.Errorf("codec: unmarshal json: %w", err)
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Absent(), fmt.Errorf("codec: unmarshal json: %w", err)
	}
	return v, nil
}

// CBOR is a compact binary alternative. Encoding is canonical so output is
// deterministic for a given value tree.
var CBOR Codec = cborCodec{}

var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor enc mode: %v", err))
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(v value.Value) ([]byte, error) {
	data, err := cborEnc.Marshal(v.Interface())
	if err != nil {
		return nil, fmt.Errorf("codec: marshal cbor: %w", err)
	}
	return data, nil
}

func (cborCodec) Unmarshal(data []byte) (value.Value, error) {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return value.Absent(), fmt.Errorf("codec: unmarshal cbor: %w", err)
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Absent(), fmt.Errorf("codec: unmarshal cbor: %w", err)
	}
	return v, nil
}
