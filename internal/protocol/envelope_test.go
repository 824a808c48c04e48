package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/duplex/internal/protocol/value"
)

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	body := value.Obj(value.ObjectOf(value.Member{Key: "marker", Value: value.String("m-1")}))
	env := Envelope{Seq: 7, Kind: KindRequest, Discriminator: "ping", Body: body}

	v, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Seq != 7 || got.Kind != KindRequest || got.Discriminator != "ping" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if !got.Body.Equal(body) {
		t.Fatalf("body mismatch")
	}
}

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Seq:           9,
		Kind:          KindResponse,
		Discriminator: "ping",
		RequestSeq:    7,
		Success:       true,
		Body:          value.Obj(value.ObjectOf(value.Member{Key: "ok", Value: value.Bool(true)})),
	}
	v, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestSeq != 7 || !got.Success || got.ErrorMessage != "" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestErrorResponseCarriesMessage(t *testing.T) {
	env := Envelope{
		Seq:           3,
		Kind:          KindResponse,
		Discriminator: "ping",
		RequestSeq:    2,
		Success:       false,
		ErrorMessage:  "Oh noes!",
	}
	v, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success || got.ErrorMessage != "Oh noes!" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestEventEnvelopeOmitsAbsentBody(t *testing.T) {
	env := Envelope{Seq: 4, Kind: KindEvent, Discriminator: "stopped"}
	v, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	o, _ := v.AsObject()
	if _, ok := o.Get("body"); ok {
		t.Fatalf("absent body must be omitted")
	}
	got, err := DecodeEnvelope(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != KindEvent || got.Discriminator != "stopped" || !got.Body.IsAbsent() {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestEncodeRejectsBadEnvelopes(t *testing.T) {
	if _, err := (Envelope{Kind: KindRequest, Discriminator: "x"}).Encode(); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("zero seq: %v", err)
	}
	if _, err := (Envelope{Seq: 1, Kind: KindRequest}).Encode(); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("empty discriminator: %v", err)
	}
	if _, err := (Envelope{Seq: 1, Kind: KindResponse, Discriminator: "x"}).Encode(); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("response without request_seq: %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
	}{
		{"not an object", value.Int(1)},
		{"missing seq", value.Obj(value.ObjectOf(
			value.Member{Key: "type", Value: value.String("request")},
			value.Member{Key: "command", Value: value.String("x")},
		))},
		{"bad kind", value.Obj(value.ObjectOf(
			value.Member{Key: "seq", Value: value.Int(1)},
			value.Member{Key: "type", Value: value.String("bogus")},
		))},
		{"negative seq", value.Obj(value.ObjectOf(
			value.Member{Key: "seq", Value: value.Int(-1)},
			value.Member{Key: "type", Value: value.String("event")},
			value.Member{Key: "event", Value: value.String("x")},
		))},
		{"response missing success", value.Obj(value.ObjectOf(
			value.Member{Key: "seq", Value: value.Int(2)},
			value.Member{Key: "type", Value: value.String("response")},
			value.Member{Key: "command", Value: value.String("x")},
			value.Member{Key: "request_seq", Value: value.Int(1)},
		))},
	}
	for _, tc := range cases {
		if _, err := DecodeEnvelope(tc.v); !errors.Is(err, ErrMalformedEnvelope) {
			t.Fatalf("%s: expected ErrMalformedEnvelope, got %v", tc.name, err)
		}
	}
}
