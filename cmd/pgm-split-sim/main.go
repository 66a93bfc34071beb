package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/simulator"
)

func main() {
	var (
		out    = flag.String("out", "sim.bin", "Output dump file")
		width  = flag.Int("width", 64, "Frame width in pixels")
		height = flag.Int("height", 48, "Frame height in pixels")
		frames = flag.Int("frames", 10, "Number of frames")
		header = flag.Int("header", 0, "Filler bytes written before the first frame")
		seed   = flag.Int64("seed", 1, "Noise seed")
	)
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		logrus.Fatalf("create dump: %v", err)
	}
	n, err := simulator.WriteDump(f, *width, *height, *frames, *header, *seed)
	if err != nil {
		_ = f.Close()
		logrus.Fatalf("write dump: %v", err)
	}
	if err := f.Close(); err != nil {
		logrus.Fatalf("close dump: %v", err)
	}
	fmt.Printf("wrote %s: %d bytes (%d frames of %dx%d after %d header bytes)\n", *out, n, *frames, *width, *height, *header)
}
