// Package publish replays split frames as a detector-style stream: CBOR
// messages over a ZMQ PUSH socket, one "start", one "image" per frame and
// one "end".
package publish

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pgm-split-go/internal/types"
)

const (
	channelName     = "frame"
	defaultSendWait = 5 * time.Second
)

type sender interface {
	SendBytes(data []byte, flags zmq4.Flag) (int, error)
	Close() error
}

type Publisher struct {
	socket   sender
	endpoint string
	sent     int
}

// StartInfo describes the run announced in the "start" message.
type StartInfo struct {
	Source         string
	Width          int
	Height         int
	NumberOfImages int64
}

// NewPublisher binds a PUSH socket on endpoint. Sends fail after sendWait
// when no consumer is connected; zero selects the default.
func NewPublisher(endpoint string, sendWait time.Duration) (*Publisher, error) {
	if sendWait <= 0 {
		sendWait = defaultSendWait
	}
	socket, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		return nil, errors.Wrap(err, "create zmq socket")
	}
	if err := socket.SetSndtimeo(sendWait); err != nil {
		_ = socket.Close()
		return nil, errors.Wrap(err, "set send timeout")
	}
	if err := socket.SetLinger(sendWait); err != nil {
		_ = socket.Close()
		return nil, errors.Wrap(err, "set linger")
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, errors.Wrapf(err, "bind %s", endpoint)
	}
	logrus.Infof("publishing frames on %s", endpoint)
	return newPublisher(socket, endpoint), nil
}

func newPublisher(socket sender, endpoint string) *Publisher {
	return &Publisher{socket: socket, endpoint: endpoint}
}

func (p *Publisher) Start(info StartInfo) error {
	return p.send(map[string]any{
		"type":             "start",
		"source":           info.Source,
		"width":            info.Width,
		"height":           info.Height,
		"number_of_images": info.NumberOfImages,
		"channels":         []string{channelName},
	})
}

func (p *Publisher) Image(frame types.Frame) error {
	msg, err := EncodeImage(frame, time.Now())
	if err != nil {
		return err
	}
	return p.sendRaw(msg)
}

func (p *Publisher) End(files int) error {
	return p.send(map[string]any{
		"type":             "end",
		"number_of_images": files,
	})
}

// Sent returns the number of messages handed to the socket.
func (p *Publisher) Sent() int {
	return p.sent
}

func (p *Publisher) Close() error {
	return p.socket.Close()
}

func (p *Publisher) send(payload map[string]any) error {
	msg, err := cbor.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	return p.sendRaw(msg)
}

func (p *Publisher) sendRaw(msg []byte) error {
	if _, err := p.socket.SendBytes(msg, 0); err != nil {
		return errors.Wrapf(err, "send to %s", p.endpoint)
	}
	p.sent++
	return nil
}

// EncodeImage builds the "image" message for frame. image_id is 0-based.
// Declared rows go into the typed array; bytes of a trailing partial row are
// carried separately under "tail".
func EncodeImage(frame types.Frame, at time.Time) ([]byte, error) {
	whole := frame.Height * frame.Width
	array, err := encodeMultiDimArray(frame.Payload[:whole], frame.Height, frame.Width)
	if err != nil {
		return nil, err
	}
	msg := map[string]any{
		"type":       "image",
		"image_id":   frame.Index - 1,
		"start_time": float64(at.UnixNano()) / 1e9,
		"data": map[string]any{
			channelName: array,
		},
	}
	if tail := frame.Payload[whole:]; len(tail) > 0 {
		msg["tail"] = tail
	}
	return cbor.Marshal(msg)
}

// Image is a decoded "image" message.
type Image struct {
	ImageID   int
	StartTime float64
	Rows      [][]uint8
	Tail      []byte
}

func DecodeImage(msg []byte) (Image, error) {
	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		return Image{}, errors.Wrap(err, "decode message")
	}
	if msgType, _ := payload["type"].(string); msgType != "image" {
		return Image{}, errors.Errorf("unexpected message type %q", msgType)
	}
	imageID, err := toInt(payload["image_id"])
	if err != nil {
		return Image{}, errors.Wrap(err, "image_id")
	}
	startTime, _ := payload["start_time"].(float64)
	dataRaw, ok := payload["data"].(map[any]any)
	if !ok {
		return Image{}, errors.New("invalid data field")
	}
	rows, err := decodeMultiDimArray(dataRaw[channelName])
	if err != nil {
		return Image{}, err
	}
	tail, _ := payload["tail"].([]byte)
	return Image{
		ImageID:   imageID,
		StartTime: startTime,
		Rows:      rows,
		Tail:      tail,
	}, nil
}
