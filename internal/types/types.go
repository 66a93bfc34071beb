package types

// Frame is one chunk read from the dump. Height is the declared row count,
// len(Payload)/Width, which undercounts when the payload ends mid-row.
type Frame struct {
	Index   int    `json:"index"`
	Offset  int64  `json:"offset"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Payload []byte `json:"-"`
}

// PartialRow reports whether the payload carries bytes beyond the declared rows.
func (f Frame) PartialRow() bool {
	return f.Width > 0 && len(f.Payload)%f.Width != 0
}

type FrameStats struct {
	Min       uint8   `json:"min" cbor:"min"`
	Max       uint8   `json:"max" cbor:"max"`
	Mean      float64 `json:"mean" cbor:"mean"`
	Saturated int     `json:"saturated" cbor:"saturated"`
}

type FrameRecord struct {
	Index      int        `json:"index" cbor:"index"`
	Name       string     `json:"name" cbor:"name"`
	Width      int        `json:"width" cbor:"width"`
	Height     int        `json:"height" cbor:"height"`
	Offset     int64      `json:"offset" cbor:"offset"`
	Length     int        `json:"length" cbor:"length"`
	PartialRow bool       `json:"partial_row" cbor:"partial_row"`
	Stats      FrameStats `json:"stats" cbor:"stats"`
}
