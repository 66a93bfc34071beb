// Package splitter turns a flat dump of fixed-size 8-bit frames into one PGM
// file per frame.
package splitter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/config"
	"pgm-split-go/internal/pgm"
	"pgm-split-go/internal/processing"
	"pgm-split-go/internal/types"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Sink is notified after each output file has been written. The frame payload
// is only valid for the duration of the call.
type Sink interface {
	Written(frame types.Frame, record types.FrameRecord) error
}

type SinkFunc func(frame types.Frame, record types.FrameRecord) error

func (f SinkFunc) Written(frame types.Frame, record types.FrameRecord) error {
	return f(frame, record)
}

// Plan is what is known about a dump before splitting it.
type Plan struct {
	Path      string
	Width     int
	Height    int
	FileSize  int64
	FrameSize int64
	// TotalFrames counts full frames in the whole file, offset included.
	// It is informational and does not bound the split.
	TotalFrames int64
}

type Result struct {
	processing.Summary
	Names []string
}

func Validate(cfg config.SplitConfig) error {
	switch {
	case cfg.Width <= 0:
		return errors.Wrapf(ErrInvalidArgument, "width must be positive, got %d", cfg.Width)
	case cfg.Height <= 0:
		return errors.Wrapf(ErrInvalidArgument, "height must be positive, got %d", cfg.Height)
	case cfg.Offset < 0:
		return errors.Wrapf(ErrInvalidArgument, "offset must not be negative, got %d", cfg.Offset)
	case cfg.DumpPath == "":
		return errors.Wrap(ErrInvalidArgument, "dump path is empty")
	}
	return nil
}

func Inspect(cfg config.SplitConfig) (Plan, error) {
	if err := Validate(cfg); err != nil {
		return Plan{}, err
	}
	info, err := os.Stat(cfg.DumpPath)
	if err != nil {
		return Plan{}, errors.Wrap(err, "stat dump")
	}
	frameSize := cfg.FrameSize()
	return Plan{
		Path:        cfg.DumpPath,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FileSize:    info.Size(),
		FrameSize:   frameSize,
		TotalFrames: info.Size() / frameSize,
	}, nil
}

func (p Plan) Report(w io.Writer) {
	fmt.Fprintf(w, "File: %s\n", p.Path)
	fmt.Fprintf(w, "Size: %d bytes\n", p.FileSize)
	fmt.Fprintf(w, "Frame: %dx%d => %d bytes per frame\n", p.Width, p.Height, p.FrameSize)
	fmt.Fprintf(w, "Total full frames in dump: %d\n", p.TotalFrames)
}

// FrameName returns prefix followed by the zero-padded sequence number.
func FrameName(prefix string, index int) string {
	return fmt.Sprintf("%s%04d%s", prefix, index, pgm.Extension)
}

// Split skips cfg.Offset bytes of the dump, then writes one PGM per chunk of
// up to width*height bytes, printing "Wrote <name>" to out for each file.
// It stops after the first chunk shorter than a full frame. Unless
// cfg.SkipEmptyTail is set, that chunk is written even when it is empty.
func Split(ctx context.Context, cfg config.SplitConfig, out io.Writer, sinks ...Sink) (Result, error) {
	var result Result
	if err := Validate(cfg); err != nil {
		return result, err
	}

	f, err := os.Open(cfg.DumpPath)
	if err != nil {
		return result, errors.Wrap(err, "open dump")
	}
	defer f.Close()

	skipped, err := io.CopyN(io.Discard, f, cfg.Offset)
	if err != nil && err != io.EOF {
		return result, errors.Wrap(err, "skip offset")
	}
	if skipped < cfg.Offset {
		logrus.WithFields(logrus.Fields{
			"offset":  cfg.Offset,
			"skipped": skipped,
		}).Warn("offset reaches past end of dump")
	}

	frameSize := int(cfg.FrameSize())
	buf := make([]byte, frameSize)
	agg := processing.NewAggregator()
	pos := skipped

	for frameNum := 1; ; frameNum++ {
		if err := ctx.Err(); err != nil {
			result.Summary = agg.Snapshot()
			return result, err
		}

		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			result.Summary = agg.Snapshot()
			return result, errors.Wrapf(err, "read frame %d", frameNum)
		}
		if n == 0 && cfg.SkipEmptyTail {
			break
		}

		frame := types.Frame{
			Index:   frameNum,
			Offset:  pos,
			Width:   cfg.Width,
			Height:  n / cfg.Width,
			Payload: buf[:n],
		}
		name := FrameName(cfg.Prefix, frameNum)
		if frame.PartialRow() {
			logrus.WithFields(logrus.Fields{
				"file":     name,
				"bytes":    n,
				"declared": frame.Height,
			}).Warn("trailing bytes do not fill a row; header height undercounts payload")
		}

		written, err := pgm.WriteFile(name, frame.Width, frame.Height, frame.Payload)
		if err != nil {
			result.Summary = agg.Snapshot()
			return result, err
		}
		fmt.Fprintf(out, "Wrote %s\n", name)

		record := types.FrameRecord{
			Index:      frame.Index,
			Name:       name,
			Width:      frame.Width,
			Height:     frame.Height,
			Offset:     frame.Offset,
			Length:     n,
			PartialRow: frame.PartialRow(),
			Stats:      processing.Stats(frame.Payload),
		}
		agg.AddFrame(record, written)
		result.Names = append(result.Names, name)
		logrus.WithFields(logrus.Fields{
			"file":   name,
			"offset": frame.Offset,
			"height": frame.Height,
		}).Debug("frame written")

		for _, sink := range sinks {
			if err := sink.Written(frame, record); err != nil {
				result.Summary = agg.Snapshot()
				return result, errors.Wrapf(err, "frame %d", frameNum)
			}
		}

		pos += int64(n)
		if n < frameSize {
			break
		}
	}

	result.Summary = agg.Snapshot()
	return result, nil
}
