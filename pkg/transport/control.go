package transport

import (
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Control message types, re-exported for callers that handle frames
// without importing the wire package directly.
const (
	ControlPing  = wire.ControlPing
	ControlPong  = wire.ControlPong
	ControlClose = wire.ControlClose
)

// EncodePing encodes a ping control message.
func EncodePing(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPing,
		Sequence: seq,
	})
}

// EncodePong encodes a pong control message.
func EncodePong(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPong,
		Sequence: seq,
	})
}

// EncodeClose encodes a close control message.
func EncodeClose() ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type: wire.ControlClose,
	})
}

// DecodeControlMessage decodes a control message and returns its type
// and sequence.
func DecodeControlMessage(data []byte) (wire.ControlMessageType, uint32, error) {
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return 0, 0, err
	}
	return msg.Type, msg.Sequence, nil
}

// controlFrame decodes data as a control message when the frame's type
// tag says it is one. Requests reuse the same small integer keys, so
// the tag has to be peeked before committing to a decode.
func controlFrame(data []byte) (*wire.ControlMessage, bool) {
	mt, err := wire.PeekMessageType(data)
	if err != nil || mt != wire.MessageTypeControl {
		return nil, false
	}
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return nil, false
	}
	return msg, true
}
