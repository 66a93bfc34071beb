package publish

import (
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestMultiDimArrayThroughCBOR(t *testing.T) {
	tag, err := encodeMultiDimArray([]byte{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("encodeMultiDimArray error: %v", err)
	}

	encoded, err := cbor.Marshal(tag)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded any
	if err := cbor.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	got, err := decodeMultiDimArray(decoded)
	if err != nil {
		t.Fatalf("decodeMultiDimArray error: %v", err)
	}
	want := [][]uint8{
		{1, 2, 3},
		{4, 5, 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows mismatch: got %#v want %#v", got, want)
	}
}

func TestMultiDimArrayZeroRows(t *testing.T) {
	tag, err := encodeMultiDimArray(nil, 0, 10)
	if err != nil {
		t.Fatalf("encodeMultiDimArray error: %v", err)
	}
	encoded, err := cbor.Marshal(tag)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded any
	if err := cbor.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	got, err := decodeMultiDimArray(decoded)
	if err != nil {
		t.Fatalf("decodeMultiDimArray error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rows, got %#v", got)
	}
}

func TestDecodeMultiDimArrayRejectsWrongTag(t *testing.T) {
	if _, err := decodeMultiDimArray(cbor.Tag{Number: tagUint8, Content: []byte{1}}); err == nil {
		t.Fatalf("expected error for non-multidim tag")
	}
}

func TestEncodeMultiDimArrayMismatch(t *testing.T) {
	if _, err := encodeMultiDimArray([]byte{1, 2, 3}, 2, 2); err == nil {
		t.Fatalf("expected dimension mismatch")
	}
}
