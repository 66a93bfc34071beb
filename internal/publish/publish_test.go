package publish

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"pgm-split-go/internal/types"
)

type fakeSocket struct {
	messages [][]byte
	fail     error
	closed   bool
}

func (f *fakeSocket) SendBytes(data []byte, _ zmq4.Flag) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.messages = append(f.messages, append([]byte(nil), data...))
	return len(data), nil
}

func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

func TestEncodeImageRoundTrip(t *testing.T) {
	frame := types.Frame{Index: 3, Width: 2, Height: 2, Payload: []byte{10, 20, 30, 40, 50}}
	at := time.Unix(100, 500_000_000)

	msg, err := EncodeImage(frame, at)
	if err != nil {
		t.Fatalf("EncodeImage error: %v", err)
	}
	img, err := DecodeImage(msg)
	if err != nil {
		t.Fatalf("DecodeImage error: %v", err)
	}
	if img.ImageID != 2 {
		t.Fatalf("unexpected image_id: %d", img.ImageID)
	}
	if img.StartTime != 100.5 {
		t.Fatalf("unexpected start_time: %v", img.StartTime)
	}
	if !reflect.DeepEqual(img.Rows, [][]uint8{{10, 20}, {30, 40}}) {
		t.Fatalf("unexpected rows: %#v", img.Rows)
	}
	if !reflect.DeepEqual(img.Tail, []byte{50}) {
		t.Fatalf("unexpected tail: %#v", img.Tail)
	}
}

func TestEncodeImageEmpty(t *testing.T) {
	msg, err := EncodeImage(types.Frame{Index: 1, Width: 10}, time.Now())
	if err != nil {
		t.Fatalf("EncodeImage error: %v", err)
	}
	img, err := DecodeImage(msg)
	if err != nil {
		t.Fatalf("DecodeImage error: %v", err)
	}
	if len(img.Rows) != 0 || len(img.Tail) != 0 {
		t.Fatalf("expected empty image, got %#v", img)
	}
}

func TestPublisherSequence(t *testing.T) {
	socket := &fakeSocket{}
	p := newPublisher(socket, "inproc://test")

	if err := p.Start(StartInfo{Source: "dump.bin", Width: 2, Height: 1, NumberOfImages: 1}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := p.Image(types.Frame{Index: 1, Width: 2, Height: 1, Payload: []byte{1, 2}}); err != nil {
		t.Fatalf("Image error: %v", err)
	}
	if err := p.End(1); err != nil {
		t.Fatalf("End error: %v", err)
	}
	if err := p.Close(); err != nil || !socket.closed {
		t.Fatalf("Close did not close socket: %v", err)
	}
	if p.Sent() != 3 || len(socket.messages) != 3 {
		t.Fatalf("unexpected message count: %d", len(socket.messages))
	}

	var kinds []string
	for _, msg := range socket.messages {
		var payload map[string]any
		if err := cbor.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		kind, _ := payload["type"].(string)
		kinds = append(kinds, kind)
	}
	if !reflect.DeepEqual(kinds, []string{"start", "image", "end"}) {
		t.Fatalf("unexpected message types: %v", kinds)
	}
}

func TestPublisherSendError(t *testing.T) {
	p := newPublisher(&fakeSocket{fail: errors.New("resource temporarily unavailable")}, "tcp://*:1")
	if err := p.End(0); err == nil {
		t.Fatalf("expected send error")
	}
	if p.Sent() != 0 {
		t.Fatalf("failed send counted")
	}
}
