package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"pgm-split-go/internal/types"
)

const FrameLogMagic = "PGMSPLT1"

// FrameLogWriter appends one CBOR-encoded FrameRecord per written frame.
// Record layout: u64 LE unix nanos, u32 LE payload length, payload.
type FrameLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewFrameLogWriter(outputDir string, base string) (*FrameLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create frame log dir")
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, base))
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "create frame log")
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if _, err := w.WriteString(FrameLogMagic); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "write frame log magic")
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "write frame log magic")
	}
	return &FrameLogWriter{
		f:    f,
		w:    w,
		path: filename,
	}, nil
}

func (l *FrameLogWriter) Path() string {
	return l.path
}

func (l *FrameLogWriter) Record(record types.FrameRecord) error {
	payload, err := cbor.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encode frame record")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return errors.New("frame log writer is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := l.w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write frame record")
	}
	if _, err := l.w.Write(payload); err != nil {
		return errors.Wrap(err, "write frame record")
	}
	return l.w.Flush()
}

func (l *FrameLogWriter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		l.w = nil
		return err
	}
	err := l.f.Close()
	l.w = nil
	return err
}

// LogEntry is one record read back from a frame log. Payload is the raw CBOR.
type LogEntry struct {
	Timestamp time.Time
	Payload   []byte
}

// ReadFrameLog checks the magic and calls fn for each record until EOF or
// until fn returns false.
func ReadFrameLog(r io.Reader, fn func(LogEntry) bool) error {
	header := make([]byte, len(FrameLogMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return errors.Wrap(err, "read magic")
	}
	if string(header) != FrameLogMagic {
		return errors.Errorf("unexpected frame log magic %q", string(header))
	}
	for {
		var meta [12]byte
		if _, err := io.ReadFull(r, meta[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "read record header")
		}
		ts := int64(binary.LittleEndian.Uint64(meta[:8]))
		size := binary.LittleEndian.Uint32(meta[8:12])
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return errors.Wrap(err, "read record payload")
		}
		if !fn(LogEntry{Timestamp: time.Unix(0, ts), Payload: payload}) {
			return nil
		}
	}
}

// DecodeRecord decodes a record payload written by FrameLogWriter.
func DecodeRecord(payload []byte) (types.FrameRecord, error) {
	var record types.FrameRecord
	if err := cbor.Unmarshal(payload, &record); err != nil {
		return record, errors.Wrap(err, "decode frame record")
	}
	return record, nil
}
