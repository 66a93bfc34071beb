// Package pgm reads and writes the binary (P5) variant of the portable graymap
// format with 8-bit samples.
package pgm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const (
	Magic     = "P5"
	MaxVal    = 255
	Extension = ".pgm"
)

type Header struct {
	Width  int
	Height int
	MaxVal int
	// Size is the number of bytes the header occupies in the file.
	Size int
}

// WriteHeader writes the three-line header: magic, dimensions, max sample value.
func WriteHeader(w io.Writer, width, height int) (int, error) {
	return fmt.Fprintf(w, "%s\n%d %d\n%d\n", Magic, width, height, MaxVal)
}

// WriteFile creates path and writes the header followed by payload verbatim.
// It returns the total number of bytes written.
func WriteFile(path string, width, height int, payload []byte) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	n, err := WriteHeader(w, width, height)
	if err != nil {
		_ = f.Close()
		return 0, errors.Wrapf(err, "write header %s", path)
	}
	m, err := w.Write(payload)
	if err != nil {
		_ = f.Close()
		return 0, errors.Wrapf(err, "write payload %s", path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return 0, errors.Wrapf(err, "flush %s", path)
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrapf(err, "close %s", path)
	}
	return int64(n + m), nil
}

// ReadHeader parses a P5 header. Comments starting with '#' are skipped.
// On success r is positioned at the first payload byte.
func ReadHeader(r *bufio.Reader) (Header, error) {
	var h Header
	magic, n, err := readToken(r)
	h.Size += n
	if err != nil {
		return h, errors.Wrap(err, "read magic")
	}
	if magic != Magic {
		return h, errors.Errorf("unexpected magic %q", magic)
	}
	fields := []*int{&h.Width, &h.Height, &h.MaxVal}
	names := []string{"width", "height", "maxval"}
	for i, dst := range fields {
		tok, n, err := readToken(r)
		h.Size += n
		if err != nil {
			return h, errors.Wrapf(err, "read %s", names[i])
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return h, errors.Errorf("invalid %s %q", names[i], tok)
		}
		*dst = v
	}
	return h, nil
}

// readToken skips whitespace and comments, then reads up to and including
// the single whitespace byte that terminates the token.
func readToken(r *bufio.Reader) (string, int, error) {
	var (
		buf      []byte
		consumed int
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return "", consumed, io.ErrUnexpectedEOF
			}
			return "", consumed, err
		}
		consumed++
		switch {
		case b == '#' && len(buf) == 0:
			line, err := r.ReadBytes('\n')
			consumed += len(line)
			if err != nil {
				return "", consumed, err
			}
		case isSpace(b):
			if len(buf) > 0 {
				return string(buf), consumed, nil
			}
		default:
			buf = append(buf, b)
		}
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
