package codec

import (
	"errors"
	"testing"

	"github.com/danmuck/duplex/internal/protocol/value"
)

func sampleTree() value.Value {
	return value.Obj(value.ObjectOf(
		value.Member{Key: "b", Value: value.Bool(true)},
		value.Member{Key: "i", Value: value.Int(72)},
		value.Member{Key: "n", Value: value.Float(123.456)},
		value.Member{Key: "s", Value: value.String("ROGER")},
		value.Member{Key: "a", Value: value.Array(value.Int(5), value.Int(4), value.Int(3))},
		value.Member{Key: "o", Value: value.Obj(value.ObjectOf(
			value.Member{Key: "one", Value: value.Int(1)},
			value.Member{Key: "two", Value: value.Float(2)},
		))},
	))
}

func TestJSONRoundTrip(t *testing.T) {
	tree := sampleTree()
	data, err := JSON.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := JSON.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tree.Equal(got) {
		t.Fatalf("round-trip mismatch:\nwant %v\ngot  %v", tree.Interface(), got.Interface())
	}
}

func TestJSONKeepsIntsIntegral(t *testing.T) {
	data, err := JSON.Marshal(value.Obj(value.ObjectOf(
		value.Member{Key: "i", Value: value.Int(9007199254740993)},
	)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := JSON.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	o, _ := got.AsObject()
	iv, _ := o.Get("i")
	if iv.Kind() != value.KindInt {
		t.Fatalf("large int degraded to %s", iv.Kind())
	}
	n, _ := iv.AsInt()
	if n != 9007199254740993 {
		t.Fatalf("lost precision: %d", n)
	}
}

func TestJSONMarshalDeterministic(t *testing.T) {
	tree := sampleTree()
	first, err := JSON.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := JSON.Marshal(tree)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("non-deterministic output:\n%s\n%s", first, again)
		}
	}
}

func TestJSONUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := JSON.Unmarshal([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}

func TestCBORRoundTrip(t *testing.T) {
	tree := sampleTree()
	data, err := CBOR.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := CBOR.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tree.Equal(got) {
		t.Fatalf("round-trip mismatch:\nwant %v\ngot  %v", tree.Interface(), got.Interface())
	}
}

func TestCBORUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := CBOR.Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected error for malformed cbor")
	}
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	if err != nil || c.Name() != "json" {
		t.Fatalf("default codec: %v %v", c, err)
	}
	c, err = ByName("cbor")
	if err != nil || c.Name() != "cbor" {
		t.Fatalf("cbor codec: %v %v", c, err)
	}
	if _, err := ByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}
