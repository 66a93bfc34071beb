package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/config"
	"pgm-split-go/internal/output"
	"pgm-split-go/internal/publish"
	"pgm-split-go/internal/server"
	"pgm-split-go/internal/splitter"
	"pgm-split-go/internal/types"
)

const usageLine = "Usage: pgm-split [flags] <dump_file> <width> <height> <out_prefix> [<offset>]"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(1)
		}
		logrus.Fatalf("pgm-split: %v", err)
	}
}

func parseArgs(args []string, stdout io.Writer) (config.SplitConfig, error) {
	var cfg config.SplitConfig
	fs := flag.NewFlagSet("pgm-split", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintln(stdout, usageLine)
		fs.PrintDefaults()
	}
	fs.BoolVar(&cfg.SkipEmptyTail, "skip-empty-tail", false, "Do not write a zero-height file when the dump ends on a frame boundary")
	fs.StringVar(&cfg.FrameLogDir, "frame-log", "", "Directory for a binary log of frame records (disabled when empty)")
	fs.StringVar(&cfg.PublishAddr, "publish", "", "ZMQ endpoint to bind and replay frames on, e.g. tcp://*:31001")
	fs.IntVar(&cfg.ProgressPort, "progress-port", 0, "HTTP port for websocket progress events (disabled when 0)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return cfg, errUsage
	}

	if fs.NArg() < 4 {
		fs.Usage()
		return cfg, errUsage
	}
	cfg.DumpPath = fs.Arg(0)
	cfg.Prefix = fs.Arg(3)

	var err error
	if cfg.Width, err = strconv.Atoi(fs.Arg(1)); err != nil {
		return cfg, errors.Wrapf(splitter.ErrInvalidArgument, "width %q", fs.Arg(1))
	}
	if cfg.Height, err = strconv.Atoi(fs.Arg(2)); err != nil {
		return cfg, errors.Wrapf(splitter.ErrInvalidArgument, "height %q", fs.Arg(2))
	}
	if fs.NArg() > 4 {
		if cfg.Offset, err = strconv.ParseInt(fs.Arg(4), 10, 64); err != nil {
			return cfg, errors.Wrapf(splitter.ErrInvalidArgument, "offset %q", fs.Arg(4))
		}
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := parseArgs(args, stdout)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(splitter.ErrInvalidArgument, "log level %q", cfg.LogLevel)
	}
	logrus.SetLevel(level)

	plan, err := splitter.Inspect(cfg)
	if err != nil {
		return err
	}
	plan.Report(stdout)

	var sinks []splitter.Sink

	if cfg.FrameLogDir != "" {
		base := filepath.Base(cfg.Prefix)
		if base == "." || base == string(filepath.Separator) || cfg.Prefix == "" {
			base = "frames"
		}
		frameLog, err := output.NewFrameLogWriter(cfg.FrameLogDir, base)
		if err != nil {
			return err
		}
		defer func() {
			if err := frameLog.Close(); err != nil {
				logrus.Warnf("frame log close failed: %v", err)
			}
		}()
		logrus.Infof("recording frames to %s", frameLog.Path())
		sinks = append(sinks, splitter.SinkFunc(func(_ types.Frame, record types.FrameRecord) error {
			return frameLog.Record(record)
		}))
	}

	var publisher *publish.Publisher
	if cfg.PublishAddr != "" {
		publisher, err = publish.NewPublisher(cfg.PublishAddr, 0)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.Start(publish.StartInfo{
			Source:         cfg.DumpPath,
			Width:          cfg.Width,
			Height:         cfg.Height,
			NumberOfImages: plan.TotalFrames,
		}); err != nil {
			return err
		}
		sinks = append(sinks, splitter.SinkFunc(func(frame types.Frame, _ types.FrameRecord) error {
			return publisher.Image(frame)
		}))
	}

	var progress *progressFeed
	if cfg.ProgressPort > 0 {
		progress = startProgress(ctx, cfg.ProgressPort, plan)
		defer progress.stop()
		sinks = append(sinks, progress)
	}

	started := time.Now()
	result, err := splitter.Split(ctx, cfg, stdout, sinks...)
	if err != nil {
		return err
	}

	if publisher != nil {
		if err := publisher.End(result.Files); err != nil {
			return err
		}
	}
	if progress != nil {
		progress.finish(result)
	}

	logrus.WithFields(logrus.Fields{
		"files":          result.Files,
		"bytes":          result.Bytes,
		"partial_frames": result.PartialFrames,
		"empty_frames":   result.EmptyFrames,
		"elapsed":        time.Since(started).Round(time.Millisecond),
	}).Info("split complete")
	return nil
}

// progressFeed forwards frame events to the progress server without ever
// blocking the split.
type progressFeed struct {
	messages chan any
	done     chan struct{}
	files    atomic.Int64
	bytes    atomic.Int64
	state    atomic.Value
	closed   bool
}

func startProgress(ctx context.Context, port int, plan splitter.Plan) *progressFeed {
	p := &progressFeed{
		messages: make(chan any, 64),
		done:     make(chan struct{}),
	}
	p.state.Store("splitting")
	start := types.Event{Type: "start", Source: plan.Path, Total: plan.TotalFrames}
	srv := server.New(port, p.status, func() any { return start })
	go func() {
		defer close(p.done)
		if err := srv.Run(ctx, p.messages); err != nil {
			logrus.Warnf("progress server stopped: %v", err)
		}
	}()
	return p
}

func (p *progressFeed) Written(_ types.Frame, record types.FrameRecord) error {
	p.files.Add(1)
	p.bytes.Add(int64(record.Length))
	select {
	case p.messages <- types.Event{Type: "frame", Frame: &record}:
	default:
		logrus.Debugf("progress queue full, dropping %s", record.Name)
	}
	return nil
}

func (p *progressFeed) status() map[string]any {
	return map[string]any{
		"state":         p.state.Load(),
		"files_written": p.files.Load(),
		"bytes_read":    p.bytes.Load(),
	}
}

func (p *progressFeed) finish(result splitter.Result) {
	p.state.Store("done")
	select {
	case p.messages <- types.Event{Type: "end", Files: result.Files, Bytes: result.Bytes}:
	case <-time.After(time.Second):
	}
}

func (p *progressFeed) stop() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.messages)
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		logrus.Warn("progress server did not stop in time")
	}
}
