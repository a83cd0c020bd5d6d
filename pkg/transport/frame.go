package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/log"
)

const (
	// frameHeaderLen is the size of the big-endian length prefix.
	frameHeaderLen = 4

	// DefaultMaxMessageSize caps a single framed payload at 64 KiB.
	DefaultMaxMessageSize = 65536

	// logPayloadLimit bounds how much frame payload goes into a
	// protocol log event.
	logPayloadLimit = 4096
)

var (
	// ErrMessageTooLarge indicates a payload above the configured cap.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates a zero-length payload.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the stream ended mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// Framer reads and writes length-prefixed frames over one stream.
// Every message travels as a 4-byte big-endian payload length followed
// by the payload. Writes may come from multiple goroutines; reads must
// come from one.
type Framer struct {
	rw      io.ReadWriter
	maxSize uint32
	header  [frameHeaderLen]byte

	writeMu sync.Mutex

	logger log.Logger
	connID string
}

// NewFramer wraps rw with the default payload cap.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize wraps rw with a custom payload cap.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{rw: rw, maxSize: maxSize}
}

// SetLogger enables protocol logging of frames under the given
// connection ID. Pass a nil logger to disable.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.logger = logger
	f.connID = connID
}

// WriteFrame writes one length-prefixed frame.
func (f *Framer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > f.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), f.maxSize)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var header [frameHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := f.rw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := f.rw.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	if f.logger != nil {
		f.logger.Log(f.frameEvent(data, log.DirectionOut))
	}
	return nil
}

// ReadFrame reads one frame and returns its payload.
func (f *Framer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.rw, f.header[:]); err != nil {
		switch {
		case err == io.EOF:
			return nil, err
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, ErrFrameTruncated
		default:
			return nil, fmt.Errorf("failed to read length prefix: %w", err)
		}
	}

	length := binary.BigEndian.Uint32(f.header[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > f.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, f.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if f.logger != nil {
		f.logger.Log(f.frameEvent(payload, log.DirectionIn))
	}
	return payload, nil
}

func (f *Framer) frameEvent(payload []byte, direction log.Direction) log.Event {
	data := payload
	truncated := false
	if len(data) > logPayloadLimit {
		data = data[:logPayloadLimit]
		truncated = true
	}
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: f.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      frameHeaderLen + len(payload),
			Data:      data,
			Truncated: truncated,
		},
	}
}
