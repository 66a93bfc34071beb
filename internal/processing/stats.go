package processing

import (
	"math"

	"pgm-split-go/internal/types"
)

// Stats summarizes the samples of one frame. An empty payload yields zero stats.
func Stats(payload []byte) types.FrameStats {
	if len(payload) == 0 {
		return types.FrameStats{}
	}
	stats := types.FrameStats{Min: math.MaxUint8}
	var sum uint64
	for _, v := range payload {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		if v == math.MaxUint8 {
			stats.Saturated++
		}
		sum += uint64(v)
	}
	stats.Mean = float64(sum) / float64(len(payload))
	return stats
}
