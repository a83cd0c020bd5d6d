package cluster

import "github.com/tvcast-protocol/tvcast-go/pkg/wire"

// KeypadInput command IDs.
const (
	KeypadInputCmdSendKey uint8 = 0x00
)

// KeyCode values follow the CEC user control codes the original remote
// protocols use, so key presses translate 1:1 on the commissionee.
type KeyCode uint8

const (
	KeyCodeSelect      KeyCode = 0x00
	KeyCodeUp          KeyCode = 0x01
	KeyCodeDown        KeyCode = 0x02
	KeyCodeLeft        KeyCode = 0x03
	KeyCodeRight       KeyCode = 0x04
	KeyCodeRootMenu    KeyCode = 0x09
	KeyCodeSetupMenu   KeyCode = 0x0A
	KeyCodeContentsMenu KeyCode = 0x0B
	KeyCodeExit        KeyCode = 0x0D
	KeyCodeNumber0     KeyCode = 0x20
	KeyCodeNumber1     KeyCode = 0x21
	KeyCodeNumber2     KeyCode = 0x22
	KeyCodeNumber3     KeyCode = 0x23
	KeyCodeNumber4     KeyCode = 0x24
	KeyCodeNumber5     KeyCode = 0x25
	KeyCodeNumber6     KeyCode = 0x26
	KeyCodeNumber7     KeyCode = 0x27
	KeyCodeNumber8     KeyCode = 0x28
	KeyCodeNumber9     KeyCode = 0x29
	KeyCodeChannelUp   KeyCode = 0x30
	KeyCodeChannelDown KeyCode = 0x31
	KeyCodeBackward    KeyCode = 0x4C
	KeyCodeForward     KeyCode = 0x4B
)

// KeypadInput commands.
var (
	KeypadInputSendKey = Command{wire.ClusterKeypadInput, KeypadInputCmdSendKey, "SendKey"}
)

// SendKeyParams injects one key press.
type SendKeyParams struct {
	KeyCode KeyCode `cbor:"1,keyasint"`
}
