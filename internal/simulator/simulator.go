// Package simulator writes synthetic frame dumps for tests and demos.
package simulator

import (
	"bufio"
	"io"
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// WriteDump writes header filler bytes followed by frames of a noisy gaussian
// spot that travels along the frame diagonal. It returns the bytes written.
func WriteDump(w io.Writer, width, height, frames, header int, seed int64) (int64, error) {
	if width < 1 || height < 1 || frames < 0 || header < 0 {
		return 0, errors.New("simulator: invalid dimensions")
	}
	rng := rand.New(rand.NewSource(seed))
	bw := bufio.NewWriter(w)
	var total int64

	for i := 0; i < header; i++ {
		if err := bw.WriteByte(0xA5); err != nil {
			return total, err
		}
		total++
	}

	totalPixels := width * height
	spread := float64(width*height) / 20
	frame := make([]byte, totalPixels)
	for n := 0; n < frames; n++ {
		progress := 0.5
		if frames > 1 {
			progress = float64(n) / float64(frames-1)
		}
		centerX := progress * float64(width-1)
		centerY := progress * float64(height-1)
		for i := 0; i < totalPixels; i++ {
			dx := float64(i%width) - centerX
			dy := float64(i/width) - centerY
			base := 200 * math.Exp(-(dx*dx+dy*dy)/spread)
			val := base + rng.NormFloat64()*math.Sqrt(base+1)
			frame[i] = clamp(val)
		}
		m, err := bw.Write(frame)
		total += int64(m)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

func clamp(v float64) byte {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint8:
		return math.MaxUint8
	default:
		return byte(v)
	}
}
