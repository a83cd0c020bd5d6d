package cluster

import "github.com/tvcast-protocol/tvcast-go/pkg/wire"

// ApplicationLauncher command IDs.
const (
	ApplicationLauncherCmdLaunchApp uint8 = 0x00
	ApplicationLauncherCmdStopApp   uint8 = 0x01
	ApplicationLauncherCmdHideApp   uint8 = 0x02
)

// ApplicationLauncher commands.
var (
	ApplicationLauncherLaunchApp = Command{wire.ClusterApplicationLauncher, ApplicationLauncherCmdLaunchApp, "LaunchApp"}
	ApplicationLauncherStopApp   = Command{wire.ClusterApplicationLauncher, ApplicationLauncherCmdStopApp, "StopApp"}
	ApplicationLauncherHideApp   = Command{wire.ClusterApplicationLauncher, ApplicationLauncherCmdHideApp, "HideApp"}
)

// Application identifies one application in a content catalog.
type Application struct {
	CatalogVendorID uint16 `cbor:"1,keyasint"`
	ApplicationID   string `cbor:"2,keyasint"`
}

// LaunchAppParams launches an application, optionally with opaque
// launch data the application interprets itself.
type LaunchAppParams struct {
	Application Application `cbor:"1,keyasint"`
	Data        []byte      `cbor:"2,keyasint,omitempty"`
}

// StopAppParams stops a running application.
type StopAppParams struct {
	Application Application `cbor:"1,keyasint"`
}

// HideAppParams hides an application without stopping it.
type HideAppParams struct {
	Application Application `cbor:"1,keyasint"`
}
