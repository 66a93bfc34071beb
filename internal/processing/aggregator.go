package processing

import "pgm-split-go/internal/types"

type Summary struct {
	Files         int   `json:"files"`
	Bytes         int64 `json:"bytes"`
	PartialFrames int   `json:"partial_frames"`
	EmptyFrames   int   `json:"empty_frames"`
	Min           uint8 `json:"min"`
	Max           uint8 `json:"max"`
}

// Aggregator accumulates per-run totals over the frames written.
type Aggregator struct {
	summary   Summary
	hasSample bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddFrame records one written frame; written is the file size in bytes.
func (a *Aggregator) AddFrame(record types.FrameRecord, written int64) {
	a.summary.Files++
	a.summary.Bytes += written
	if record.PartialRow {
		a.summary.PartialFrames++
	}
	if record.Length == 0 {
		a.summary.EmptyFrames++
		return
	}
	if !a.hasSample {
		a.summary.Min = record.Stats.Min
		a.summary.Max = record.Stats.Max
		a.hasSample = true
		return
	}
	if record.Stats.Min < a.summary.Min {
		a.summary.Min = record.Stats.Min
	}
	if record.Stats.Max > a.summary.Max {
		a.summary.Max = record.Stats.Max
	}
}

func (a *Aggregator) Snapshot() Summary {
	return a.summary
}
