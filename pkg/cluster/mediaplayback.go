package cluster

import (
	"fmt"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// MediaPlayback command IDs.
const (
	MediaPlaybackCmdPlay         uint8 = 0x00
	MediaPlaybackCmdPause        uint8 = 0x01
	MediaPlaybackCmdStop         uint8 = 0x02
	MediaPlaybackCmdNext         uint8 = 0x05
	MediaPlaybackCmdSkipForward  uint8 = 0x08
	MediaPlaybackCmdSkipBackward uint8 = 0x09
	MediaPlaybackCmdSeek         uint8 = 0x0B
)

// MediaPlayback attribute IDs.
const (
	MediaPlaybackAttrCurrentState    uint16 = 0x0000
	MediaPlaybackAttrStartTime       uint16 = 0x0001
	MediaPlaybackAttrDuration        uint16 = 0x0002
	MediaPlaybackAttrSampledPosition uint16 = 0x0003
	MediaPlaybackAttrPlaybackSpeed   uint16 = 0x0004
	MediaPlaybackAttrSeekRangeEnd    uint16 = 0x0005
	MediaPlaybackAttrSeekRangeStart  uint16 = 0x0006
)

// PlaybackState is the commissionee's media playback state.
type PlaybackState uint8

const (
	PlaybackStatePlaying    PlaybackState = 0x00
	PlaybackStatePaused     PlaybackState = 0x01
	PlaybackStateNotPlaying PlaybackState = 0x02
	PlaybackStateBuffering  PlaybackState = 0x03
)

// String returns the playback state name.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackStatePlaying:
		return "PLAYING"
	case PlaybackStatePaused:
		return "PAUSED"
	case PlaybackStateNotPlaying:
		return "NOT_PLAYING"
	case PlaybackStateBuffering:
		return "BUFFERING"
	default:
		return "UNKNOWN"
	}
}

// MediaPlayback commands.
var (
	MediaPlaybackPlay         = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdPlay, "Play"}
	MediaPlaybackPause        = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdPause, "Pause"}
	MediaPlaybackStop         = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdStop, "StopPlayback"}
	MediaPlaybackNext         = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdNext, "Next"}
	MediaPlaybackSkipForward  = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdSkipForward, "SkipForward"}
	MediaPlaybackSkipBackward = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdSkipBackward, "SkipBackward"}
	MediaPlaybackSeek         = Command{wire.ClusterMediaPlayback, MediaPlaybackCmdSeek, "Seek"}
)

// SeekParams positions playback at an absolute offset.
type SeekParams struct {
	// Position is the target offset in milliseconds from the start.
	Position uint64 `cbor:"1,keyasint"`
}

// SkipParams moves playback relative to the current position.
type SkipParams struct {
	// DeltaPositionMilliseconds is the distance to skip.
	DeltaPositionMilliseconds uint64 `cbor:"1,keyasint"`
}

// PlaybackPosition is a position sample: where playback was at a given
// instant. Position is null when no media is loaded.
type PlaybackPosition struct {
	// UpdatedAt is when the sample was taken, in epoch microseconds.
	UpdatedAt uint64 `cbor:"1,keyasint"`

	// Position is the offset in milliseconds, nil when not playing.
	Position *uint64 `cbor:"2,keyasint"`
}

// MediaPlayback attributes.
var (
	MediaPlaybackCurrentState = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrCurrentState, "CurrentState",
		decodePlaybackState,
	}
	MediaPlaybackStartTime = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrStartTime, "StartTime",
		decodeNullableUint64,
	}
	MediaPlaybackDuration = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrDuration, "Duration",
		decodeNullableUint64,
	}
	MediaPlaybackSampledPosition = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrSampledPosition, "SampledPosition",
		decodePlaybackPosition,
	}
	MediaPlaybackPlaybackSpeed = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrPlaybackSpeed, "PlaybackSpeed",
		decodeFloat32,
	}
	MediaPlaybackSeekRangeEnd = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrSeekRangeEnd, "SeekRangeEnd",
		decodeNullableUint64,
	}
	MediaPlaybackSeekRangeStart = Attribute{
		wire.ClusterMediaPlayback, MediaPlaybackAttrSeekRangeStart, "SeekRangeStart",
		decodeNullableUint64,
	}
)

func decodePlaybackState(raw any) (any, error) {
	v, err := decodeUint8(raw)
	if err != nil {
		return nil, err
	}
	state := PlaybackState(v.(uint8))
	if state > PlaybackStateBuffering {
		return nil, fmt.Errorf("unknown playback state: %d", state)
	}
	return state, nil
}

func decodePlaybackPosition(raw any) (any, error) {
	m, err := decodeStructMap(raw)
	if err != nil {
		return nil, err
	}

	pos := &PlaybackPosition{}
	if v, ok := asUint64(m[1]); ok {
		pos.UpdatedAt = v
	}
	if rawPos, ok := m[2]; ok && rawPos != nil {
		v, ok := asUint64(rawPos)
		if !ok {
			return nil, fmt.Errorf("bad position value: %v (%T)", rawPos, rawPos)
		}
		pos.Position = &v
	}
	return pos, nil
}
