package codec

import (
	"bytes"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type profile struct {
	ID   string `json:"id" msgpack:"id" cbor:"id"`
	Name string `json:"name" msgpack:"name" cbor:"name"`
}

func roundTrip[V comparable](t *testing.T, name string, c Codec[V], v V) {
	t.Helper()
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("%s encode: %v", name, err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s decode: %v", name, err)
	}
	if got != v {
		t.Fatalf("%s: got %+v want %+v", name, got, v)
	}
}

func TestStructCodecs(t *testing.T) {
	v := profile{ID: "1", Name: "Ada"}
	roundTrip[profile](t, "json", JSON[profile]{}, v)
	roundTrip[profile](t, "msgpack", Msgpack[profile]{}, v)
	roundTrip[profile](t, "cbor", MustCBOR[profile](false), v)
	roundTrip[profile](t, "cbor-det", MustCBOR[profile](true), v)
	roundTrip[string](t, "string", String{}, "plain")
}

func TestDeterministicCBORIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, _ := c.Encode(map[string]int{"a": 1, "b": 2, "c": 3})
	b, _ := c.Encode(map[string]int{"c": 3, "b": 2, "a": 1})
	if !bytes.Equal(a, b) {
		t.Fatalf("deterministic encoding differs: %x vs %x", a, b)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetValue() != "hello" {
		t.Fatalf("got %q", got.GetValue())
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	if got, err := c.Decode([]byte("1234")); err != nil || got != "1234" {
		t.Fatalf("Decode = %q,%v", got, err)
	}
}
