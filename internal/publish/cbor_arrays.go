package publish

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// RFC 8746 tags: multi-dimensional array and uint8 typed array.
const (
	tagMultiDimArray = 40
	tagUint8         = 64
)

// encodeMultiDimArray wraps rows*cols samples as tag 40 [[rows, cols], tag 64 bytes].
func encodeMultiDimArray(samples []byte, rows, cols int) (cbor.Tag, error) {
	if rows*cols != len(samples) {
		return cbor.Tag{}, errors.Errorf("dimension mismatch: %dx%d for %d samples", rows, cols, len(samples))
	}
	if samples == nil {
		// nil would encode as CBOR null
		samples = []byte{}
	}
	return cbor.Tag{
		Number: tagMultiDimArray,
		Content: []any{
			[]any{rows, cols},
			cbor.Tag{Number: tagUint8, Content: samples},
		},
	}, nil
}

func decodeMultiDimArray(value any) ([][]uint8, error) {
	tag, ok := value.(cbor.Tag)
	if !ok || tag.Number != tagMultiDimArray {
		return nil, errors.New("expected multidim tag 40")
	}

	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return nil, errors.New("invalid multidim array content")
	}

	dimsRaw, ok := items[0].([]any)
	if !ok || len(dimsRaw) != 2 {
		return nil, errors.New("invalid multidim dimensions")
	}

	rows, err := toInt(dimsRaw[0])
	if err != nil {
		return nil, err
	}
	cols, err := toInt(dimsRaw[1])
	if err != nil {
		return nil, err
	}

	typed, ok := items[1].(cbor.Tag)
	if !ok || typed.Number != tagUint8 {
		return nil, errors.New("expected uint8 typed array tag")
	}
	flat, ok := typed.Content.([]byte)
	if !ok {
		return nil, errors.Errorf("unsupported typed array content %T", typed.Content)
	}
	return reshapeUint8(flat, rows, cols)
}

func reshapeUint8(flat []uint8, rows, cols int) ([][]uint8, error) {
	if rows*cols != len(flat) {
		return nil, errors.New("dimension mismatch")
	}
	out := make([][]uint8, rows)
	for r := 0; r < rows; r++ {
		row := make([]uint8, cols)
		copy(row, flat[r*cols:(r+1)*cols])
		out[r] = row
	}
	return out, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.Errorf("unsupported int type %T", v)
	}
}
