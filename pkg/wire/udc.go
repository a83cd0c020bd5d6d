package wire

import (
	"fmt"
)

// User-directed commissioning (UDC) message types.
// UDC messages travel as single CBOR datagrams over UDP, outside the
// framed TLS stream used for interaction messages.
const (
	// MsgUDCIdentificationDeclaration announces a caster that wants to be
	// commissioned. Sent caster to commissioner.
	MsgUDCIdentificationDeclaration uint8 = 1

	// MsgUDCCommissionerDeclaration is the commissioner's answer to an
	// identification declaration. Sent commissioner to caster.
	MsgUDCCommissionerDeclaration uint8 = 2
)

// IdentificationDeclaration announces this caster to a commissioner and
// asks it to begin commissioning.
//
// CBOR encoding:
//
//	{
//	  1: msgType,            // uint8: 1
//	  2: instanceName,       // string: matches the caster's mDNS instance
//	  3: listenPort,         // uint16: caster's commissioning window port
//	  4: deviceName,         // string (optional)
//	  5: vendorId,           // uint16 (optional)
//	  6: productId,          // uint16 (optional)
//	  7: deviceType,         // uint32 (optional)
//	  8: pairingHint,        // uint16 (optional)
//	  9: pairingInstruction  // string (optional)
//	}
type IdentificationDeclaration struct {
	MsgType            uint8  `cbor:"1,keyasint"`
	InstanceName       string `cbor:"2,keyasint"`
	ListenPort         uint16 `cbor:"3,keyasint"`
	DeviceName         string `cbor:"4,keyasint,omitempty"`
	VendorID           uint16 `cbor:"5,keyasint,omitempty"`
	ProductID          uint16 `cbor:"6,keyasint,omitempty"`
	DeviceType         uint32 `cbor:"7,keyasint,omitempty"`
	PairingHint        uint16 `cbor:"8,keyasint,omitempty"`
	PairingInstruction string `cbor:"9,keyasint,omitempty"`
}

// Validate checks if the declaration is well-formed.
func (d *IdentificationDeclaration) Validate() error {
	if d.MsgType != MsgUDCIdentificationDeclaration {
		return fmt.Errorf("unexpected UDC message type: %d", d.MsgType)
	}
	if d.InstanceName == "" {
		return fmt.Errorf("instance name is required")
	}
	if d.ListenPort == 0 {
		return fmt.Errorf("listen port is required")
	}
	return nil
}

// CommissionerDeclaration is the commissioner's answer to an
// identification declaration. A commissioner that needs the user to
// enter a passcode sets NeedsPasscode before it connects.
//
// CBOR encoding:
//
//	{
//	  1: msgType,                  // uint8: 2
//	  2: errorCode,                // uint16: 0 = no error
//	  3: needsPasscode,            // bool (optional)
//	  4: passcodeDialogDisplayed,  // bool (optional)
//	  5: cancelPasscode            // bool (optional)
//	}
type CommissionerDeclaration struct {
	MsgType                 uint8  `cbor:"1,keyasint"`
	ErrorCode               uint16 `cbor:"2,keyasint"`
	NeedsPasscode           bool   `cbor:"3,keyasint,omitempty"`
	PasscodeDialogDisplayed bool   `cbor:"4,keyasint,omitempty"`
	CancelPasscode          bool   `cbor:"5,keyasint,omitempty"`
}

// UDC commissioner declaration error codes.
const (
	UDCErrorNone               uint16 = 0
	UDCErrorCommissionableFail uint16 = 1
	UDCErrorPasscodeFail       uint16 = 2
	UDCErrorBusy               uint16 = 3
)

// EncodeUDCMessage encodes a UDC message to CBOR bytes.
func EncodeUDCMessage(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case *IdentificationDeclaration:
		m.MsgType = MsgUDCIdentificationDeclaration
		return Marshal(m)
	case *CommissionerDeclaration:
		m.MsgType = MsgUDCCommissionerDeclaration
		return Marshal(m)
	default:
		return nil, fmt.Errorf("unknown UDC message type: %T", msg)
	}
}

// DecodeUDCMessage decodes a UDC datagram. The concrete type is chosen
// by the leading msgType key.
func DecodeUDCMessage(data []byte) (any, error) {
	var head struct {
		MsgType uint8 `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode UDC message type: %w", err)
	}

	switch head.MsgType {
	case MsgUDCIdentificationDeclaration:
		msg := &IdentificationDeclaration{}
		if err := Unmarshal(data, msg); err != nil {
			return nil, err
		}
		return msg, nil
	case MsgUDCCommissionerDeclaration:
		msg := &CommissionerDeclaration{}
		if err := Unmarshal(data, msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown UDC message type: %d", head.MsgType)
	}
}
