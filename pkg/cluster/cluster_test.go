package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

func TestCommandString(t *testing.T) {
	assert.Equal(t, "MediaPlayback.Play", MediaPlaybackPlay.String())
	assert.Equal(t, "ContentLauncher.LaunchURL", ContentLauncherLaunchURL.String())
}

func TestCommandInvokePayload(t *testing.T) {
	params := &SeekParams{Position: 90000}
	p := MediaPlaybackSeek.InvokePayload(params)

	assert.Equal(t, MediaPlaybackCmdSeek, p.CommandID)
	assert.Equal(t, params, p.Parameters)
}

func TestAttributeDecodeValue(t *testing.T) {
	v, err := LevelControlMaxLevel.DecodeValue(uint64(100))
	require.NoError(t, err)
	assert.Equal(t, uint8(100), v)

	_, err = LevelControlMaxLevel.DecodeValue("loud")
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrDecode)
	assert.Contains(t, err.Error(), "LevelControl.MaxLevel")
}

func TestAttributeNilDecoderPassesThrough(t *testing.T) {
	attr := Attribute{wire.ClusterMediaPlayback, 0x0042, "Raw", nil}

	v, err := attr.DecodeValue("anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", v)
}

func TestDecodeIntegerHelpers(t *testing.T) {
	tests := []struct {
		name    string
		decode  DecodeFunc
		raw     any
		want    any
		wantErr bool
	}{
		{"Uint8", decodeUint8, uint64(42), uint8(42), false},
		{"Uint8FromInt64", decodeUint8, int64(7), uint8(7), false},
		{"Uint8Overflow", decodeUint8, uint64(300), nil, true},
		{"Uint8Negative", decodeUint8, int64(-1), nil, true},
		{"Uint8String", decodeUint8, "nope", nil, true},
		{"Uint32", decodeUint32, uint64(0x00010002), uint32(0x00010002), false},
		{"Uint32Overflow", decodeUint32, uint64(1 << 40), nil, true},
		{"Uint64", decodeUint64, uint64(1 << 40), uint64(1 << 40), false},
		{"Float32", decodeFloat32, float64(1.5), float32(1.5), false},
		{"Float32Bad", decodeFloat32, uint64(1), nil, true},
		{"String", decodeString, "netflix", "netflix", false},
		{"StringBad", decodeString, uint64(1), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decode(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNullable(t *testing.T) {
	v, err := decodeNullableUint8(nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*uint8))

	v, err = decodeNullableUint8(uint64(80))
	require.NoError(t, err)
	require.NotNil(t, v.(*uint8))
	assert.Equal(t, uint8(80), *v.(*uint8))

	v, err = decodeNullableUint64(nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*uint64))
}

func TestDecodePlaybackState(t *testing.T) {
	v, err := MediaPlaybackCurrentState.DecodeValue(uint64(1))
	require.NoError(t, err)
	assert.Equal(t, PlaybackStatePaused, v)
	assert.Equal(t, "PAUSED", v.(PlaybackState).String())

	_, err = MediaPlaybackCurrentState.DecodeValue(uint64(9))
	assert.Error(t, err)
}

func TestDecodePlaybackPositionRoundTrip(t *testing.T) {
	pos := uint64(125000)
	encoded, err := wire.Marshal(&PlaybackPosition{
		UpdatedAt: 1700000000000000,
		Position:  &pos,
	})
	require.NoError(t, err)

	// Reports deliver the struct as a raw CBOR map.
	var raw any
	require.NoError(t, wire.Unmarshal(encoded, &raw))

	v, err := MediaPlaybackSampledPosition.DecodeValue(raw)
	require.NoError(t, err)

	got := v.(*PlaybackPosition)
	assert.Equal(t, uint64(1700000000000000), got.UpdatedAt)
	require.NotNil(t, got.Position)
	assert.Equal(t, pos, *got.Position)
}

func TestDecodePlaybackPositionNull(t *testing.T) {
	encoded, err := wire.Marshal(&PlaybackPosition{UpdatedAt: 42})
	require.NoError(t, err)

	var raw any
	require.NoError(t, wire.Unmarshal(encoded, &raw))

	v, err := MediaPlaybackSampledPosition.DecodeValue(raw)
	require.NoError(t, err)
	assert.Nil(t, v.(*PlaybackPosition).Position)
}

func TestDecodeTargetListRoundTrip(t *testing.T) {
	encoded, err := wire.Marshal([]TargetInfo{
		{Identifier: 1, Name: "Home"},
		{Identifier: 2, Name: "Settings"},
	})
	require.NoError(t, err)

	var raw any
	require.NoError(t, wire.Unmarshal(encoded, &raw))

	v, err := TargetNavigatorTargetList.DecodeValue(raw)
	require.NoError(t, err)

	targets := v.([]TargetInfo)
	require.Len(t, targets, 2)
	assert.Equal(t, uint8(1), targets[0].Identifier)
	assert.Equal(t, "Home", targets[0].Name)
	assert.Equal(t, "Settings", targets[1].Name)
}

func TestDecodeTargetListBad(t *testing.T) {
	_, err := TargetNavigatorTargetList.DecodeValue("not a list")
	require.Error(t, err)

	_, err = TargetNavigatorTargetList.DecodeValue([]any{"not a map"})
	require.Error(t, err)
}

func TestCommandParamsEncode(t *testing.T) {
	// Parameter structs must survive the wire codec.
	tests := []struct {
		name   string
		params any
	}{
		{"LaunchURL", &LaunchURLParams{ContentURL: "https://example.com/v.m3u8", DisplayString: "Movie"}},
		{"LaunchContent", &LaunchContentParams{Search: "nature documentary", AutoPlay: true}},
		{"MoveToLevel", &MoveToLevelParams{Level: 64, TransitionTime: 10}},
		{"Step", &StepParams{StepMode: StepModeDown, StepSize: 5}},
		{"LaunchApp", &LaunchAppParams{Application: Application{CatalogVendorID: 123, ApplicationID: "com.example.app"}}},
		{"NavigateTarget", &NavigateTargetParams{Target: 2, Data: "row-4"}},
		{"SendKey", &SendKeyParams{KeyCode: KeyCodeChannelUp}},
		{"Skip", &SkipParams{DeltaPositionMilliseconds: 10000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := wire.Marshal(tt.params)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestAttributeDescriptorsAddressTheirCluster(t *testing.T) {
	attrs := []Attribute{
		MediaPlaybackCurrentState, MediaPlaybackStartTime, MediaPlaybackDuration,
		MediaPlaybackSampledPosition, MediaPlaybackPlaybackSpeed,
		MediaPlaybackSeekRangeEnd, MediaPlaybackSeekRangeStart,
	}
	for _, a := range attrs {
		assert.Equal(t, wire.ClusterMediaPlayback, a.Cluster, a.Name)
	}

	basics := []Attribute{
		ApplicationBasicVendorName, ApplicationBasicVendorID,
		ApplicationBasicApplicationName, ApplicationBasicProductID,
		ApplicationBasicApplicationVersion,
	}
	for _, a := range basics {
		assert.Equal(t, wire.ClusterApplicationBasic, a.Cluster, a.Name)
		assert.NotNil(t, a.Decode, a.Name)
	}
}
