package commissioning

import (
	"errors"
)

// Commissioning message types.
const (
	// MsgPASERequest initiates PASE (SPAKE2+) exchange.
	MsgPASERequest uint8 = 1

	// MsgPASEResponse contains server's public value.
	MsgPASEResponse uint8 = 2

	// MsgPASEConfirm contains client's confirmation.
	MsgPASEConfirm uint8 = 3

	// MsgPASEComplete contains server's confirmation and success status.
	MsgPASEComplete uint8 = 4

	// MsgCommissioningComplete indicates commissioning is finished.
	MsgCommissioningComplete uint8 = 20

	// MsgCommissioningError indicates an error occurred.
	MsgCommissioningError uint8 = 255
)

// Commissioning error codes.
const (
	ErrCodeSuccess          uint8 = 0
	ErrCodeInvalidPublicKey uint8 = 1
	ErrCodeConfirmFailed    uint8 = 2
	ErrCodeWindowClosed     uint8 = 3
	ErrCodeInternalError    uint8 = 255
)

// Commissioning errors.
var (
	ErrInvalidMessage = errors.New("invalid commissioning message")

	// ErrCommissioningFailed wraps any failure of the commissioning exchange:
	// a bad passcode proof, a protocol violation, or window expiry while a
	// handshake was still pending.
	ErrCommissioningFailed = errors.New("commissioning failed")
)

// PASERequest is the initial SPAKE2+ message from commissioner to caster.
// CBOR: { 1: msgType, 2: publicValue, 3: clientIdentity }
type PASERequest struct {
	MsgType        uint8  `cbor:"1,keyasint"`
	PublicValue    []byte `cbor:"2,keyasint"` // pA
	ClientIdentity []byte `cbor:"3,keyasint"`
}

// PASEResponse is the caster's response containing its public value.
// CBOR: { 1: msgType, 2: publicValue }
type PASEResponse struct {
	MsgType     uint8  `cbor:"1,keyasint"`
	PublicValue []byte `cbor:"2,keyasint"` // pB
}

// PASEConfirm contains the client's confirmation MAC.
// CBOR: { 1: msgType, 2: confirmation }
type PASEConfirm struct {
	MsgType      uint8  `cbor:"1,keyasint"`
	Confirmation []byte `cbor:"2,keyasint"`
}

// PASEComplete contains the server's confirmation and status.
// CBOR: { 1: msgType, 2: confirmation, 3: errorCode }
type PASEComplete struct {
	MsgType      uint8  `cbor:"1,keyasint"`
	Confirmation []byte `cbor:"2,keyasint"`
	ErrorCode    uint8  `cbor:"3,keyasint"`
}

// CommissioningComplete ends a successful exchange. The commissioner sends
// it after verifying the passcode proof; the caster records the
// commissioner's TLS certificate fingerprint from the live connection at
// this point.
// CBOR: { 1: msgType, 2: commissionerName (optional), 3: operationalPort (optional) }
type CommissioningComplete struct {
	MsgType          uint8  `cbor:"1,keyasint"`
	CommissionerName string `cbor:"2,keyasint,omitempty"`
	OperationalPort  uint16 `cbor:"3,keyasint,omitempty"`
}

// CommissioningError indicates a commissioning error.
// CBOR: { 1: msgType, 2: errorCode, 3: message }
type CommissioningError struct {
	MsgType   uint8  `cbor:"1,keyasint"`
	ErrorCode uint8  `cbor:"2,keyasint"`
	Message   string `cbor:"3,keyasint,omitempty"`
}
