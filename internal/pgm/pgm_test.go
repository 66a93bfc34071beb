package pgm

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteHeader(&buf, 10, 0); err != nil {
		t.Fatalf("WriteHeader error: %v", err)
	}
	if got := buf.String(); got != "P5\n10 0\n255\n" {
		t.Fatalf("unexpected header: %q", got)
	}
}

func TestWriteFilePayloadVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out0001.pgm")
	payload := []byte{0, 1, 2, 254, 255, '\n', 'P'}
	n, err := WriteFile(path, 3, 2, payload)
	if err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if int64(len(data)) != n {
		t.Fatalf("reported %d bytes, file has %d", n, len(data))
	}
	want := append([]byte("P5\n3 2\n255\n"), payload...)
	if !bytes.Equal(data, want) {
		t.Fatalf("file mismatch: got %q want %q", data, want)
	}
}

func TestWriteFileBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out0001.pgm")
	if _, err := WriteFile(path, 1, 1, []byte{1}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestReadHeader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("P5\n# made by hand\n4  3\n255\nabcdefghijkl"))
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader error: %v", err)
	}
	if h.Width != 4 || h.Height != 3 || h.MaxVal != 255 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.Size != len("P5\n# made by hand\n4  3\n255\n") {
		t.Fatalf("unexpected header size: %d", h.Size)
	}
	rest, _ := io.ReadAll(r)
	if string(rest) != "abcdefghijkl" {
		t.Fatalf("payload not positioned: %q", rest)
	}
}

func TestReadHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	n, _ := WriteHeader(&buf, 640, 0)
	h, err := ReadHeader(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadHeader error: %v", err)
	}
	if h.Width != 640 || h.Height != 0 || h.Size != n {
		t.Fatalf("unexpected header: %+v (written %d)", h, n)
	}
}

func TestReadHeaderRejects(t *testing.T) {
	for _, input := range []string{"P6\n1 1\n255\n", "P5\nx 1\n255\n", "P5\n1 1"} {
		if _, err := ReadHeader(bufio.NewReader(strings.NewReader(input))); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
