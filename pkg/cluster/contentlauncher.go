package cluster

import "github.com/tvcast-protocol/tvcast-go/pkg/wire"

// ContentLauncher command IDs.
const (
	ContentLauncherCmdLaunchContent uint8 = 0x00
	ContentLauncherCmdLaunchURL     uint8 = 0x01
)

// ContentLauncher attribute IDs.
const (
	ContentLauncherAttrSupportedStreamingProtocols uint16 = 0x0001
)

// Streaming protocol bits for SupportedStreamingProtocols.
const (
	StreamingProtocolDASH uint32 = 1 << 0
	StreamingProtocolHLS  uint32 = 1 << 1
)

// ContentLauncher commands.
var (
	ContentLauncherLaunchContent = Command{wire.ClusterContentLauncher, ContentLauncherCmdLaunchContent, "LaunchContent"}
	ContentLauncherLaunchURL     = Command{wire.ClusterContentLauncher, ContentLauncherCmdLaunchURL, "LaunchURL"}
)

// LaunchURLParams starts playback of content at a URL.
type LaunchURLParams struct {
	ContentURL    string `cbor:"1,keyasint"`
	DisplayString string `cbor:"2,keyasint,omitempty"`
}

// LaunchContentParams starts playback of content found by search.
type LaunchContentParams struct {
	Search   string `cbor:"1,keyasint"`
	AutoPlay bool   `cbor:"2,keyasint"`
	Data     string `cbor:"3,keyasint,omitempty"`
}

// ContentLauncher attributes.
var (
	ContentLauncherSupportedStreamingProtocols = Attribute{
		wire.ClusterContentLauncher, ContentLauncherAttrSupportedStreamingProtocols, "SupportedStreamingProtocols",
		decodeUint32,
	}
)
