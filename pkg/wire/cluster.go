package wire

// ClusterID represents a TVCast cluster identifier.
// The identifier space follows the media cluster numbering used by
// commercial video players, so a commissionee can expose the same
// cluster set to any caster implementation.
type ClusterID uint16

const (
	// ClusterLevelControl adjusts a bounded level such as volume.
	ClusterLevelControl ClusterID = 0x0008

	// ClusterTargetNavigator navigates between UI targets on the commissionee.
	ClusterTargetNavigator ClusterID = 0x0505

	// ClusterMediaPlayback controls and observes the active media stream.
	ClusterMediaPlayback ClusterID = 0x0506

	// ClusterKeypadInput injects remote-control key presses.
	ClusterKeypadInput ClusterID = 0x0509

	// ClusterContentLauncher starts playback of new content by search or URL.
	ClusterContentLauncher ClusterID = 0x050A

	// ClusterApplicationLauncher starts and stops commissionee applications.
	ClusterApplicationLauncher ClusterID = 0x050C

	// ClusterApplicationBasic exposes identity of the running application.
	ClusterApplicationBasic ClusterID = 0x050D
)

// String returns the cluster name.
func (c ClusterID) String() string {
	switch c {
	case ClusterLevelControl:
		return "LevelControl"
	case ClusterTargetNavigator:
		return "TargetNavigator"
	case ClusterMediaPlayback:
		return "MediaPlayback"
	case ClusterKeypadInput:
		return "KeypadInput"
	case ClusterContentLauncher:
		return "ContentLauncher"
	case ClusterApplicationLauncher:
		return "ApplicationLauncher"
	case ClusterApplicationBasic:
		return "ApplicationBasic"
	default:
		return "Unknown"
	}
}

// IsKnown returns true if the cluster is one of the defined clusters.
func (c ClusterID) IsKnown() bool {
	switch c {
	case ClusterLevelControl, ClusterTargetNavigator, ClusterMediaPlayback,
		ClusterKeypadInput, ClusterContentLauncher, ClusterApplicationLauncher,
		ClusterApplicationBasic:
		return true
	default:
		return false
	}
}
