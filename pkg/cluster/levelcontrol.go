package cluster

import "github.com/tvcast-protocol/tvcast-go/pkg/wire"

// LevelControl command IDs.
const (
	LevelControlCmdMoveToLevel uint8 = 0x00
	LevelControlCmdStep        uint8 = 0x02
)

// LevelControl attribute IDs.
const (
	LevelControlAttrCurrentLevel uint16 = 0x0000
	LevelControlAttrMinLevel     uint16 = 0x0002
	LevelControlAttrMaxLevel     uint16 = 0x0003
)

// StepMode is the direction of a Step command.
type StepMode uint8

const (
	StepModeUp   StepMode = 0x00
	StepModeDown StepMode = 0x01
)

// String returns the step direction name.
func (m StepMode) String() string {
	switch m {
	case StepModeUp:
		return "UP"
	case StepModeDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// LevelControl commands.
var (
	LevelControlMoveToLevel = Command{wire.ClusterLevelControl, LevelControlCmdMoveToLevel, "MoveToLevel"}
	LevelControlStep        = Command{wire.ClusterLevelControl, LevelControlCmdStep, "Step"}
)

// MoveToLevelParams sets the level directly.
type MoveToLevelParams struct {
	Level uint8 `cbor:"1,keyasint"`

	// TransitionTime is in tenths of a second.
	TransitionTime  uint16 `cbor:"2,keyasint,omitempty"`
	OptionsMask     uint8  `cbor:"3,keyasint,omitempty"`
	OptionsOverride uint8  `cbor:"4,keyasint,omitempty"`
}

// StepParams moves the level by a relative amount.
type StepParams struct {
	StepMode StepMode `cbor:"1,keyasint"`
	StepSize uint8    `cbor:"2,keyasint"`

	// TransitionTime is in tenths of a second.
	TransitionTime  uint16 `cbor:"3,keyasint,omitempty"`
	OptionsMask     uint8  `cbor:"4,keyasint,omitempty"`
	OptionsOverride uint8  `cbor:"5,keyasint,omitempty"`
}

// LevelControl attributes.
var (
	LevelControlCurrentLevel = Attribute{
		wire.ClusterLevelControl, LevelControlAttrCurrentLevel, "CurrentLevel",
		decodeNullableUint8,
	}
	LevelControlMinLevel = Attribute{
		wire.ClusterLevelControl, LevelControlAttrMinLevel, "MinLevel",
		decodeUint8,
	}
	LevelControlMaxLevel = Attribute{
		wire.ClusterLevelControl, LevelControlAttrMaxLevel, "MaxLevel",
		decodeUint8,
	}
)
