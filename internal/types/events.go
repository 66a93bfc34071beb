package types

// Event is pushed to progress clients. Type is "start", "frame" or "end".
type Event struct {
	Type   string       `json:"type"`
	Source string       `json:"source,omitempty"`
	Total  int64        `json:"total_frames,omitempty"`
	Frame  *FrameRecord `json:"frame,omitempty"`
	Files  int          `json:"files,omitempty"`
	Bytes  int64        `json:"bytes,omitempty"`
}
