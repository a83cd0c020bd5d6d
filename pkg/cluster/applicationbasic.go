package cluster

import "github.com/tvcast-protocol/tvcast-go/pkg/wire"

// ApplicationBasic attribute IDs.
const (
	ApplicationBasicAttrVendorName         uint16 = 0x0000
	ApplicationBasicAttrVendorID           uint16 = 0x0001
	ApplicationBasicAttrApplicationName    uint16 = 0x0002
	ApplicationBasicAttrProductID          uint16 = 0x0003
	ApplicationBasicAttrApplicationVersion uint16 = 0x0006
)

// ApplicationBasic attributes. The cluster has no commands; it only
// identifies the application running on the commissionee.
var (
	ApplicationBasicVendorName = Attribute{
		wire.ClusterApplicationBasic, ApplicationBasicAttrVendorName, "VendorName",
		decodeString,
	}
	ApplicationBasicVendorID = Attribute{
		wire.ClusterApplicationBasic, ApplicationBasicAttrVendorID, "VendorID",
		decodeUint32,
	}
	ApplicationBasicApplicationName = Attribute{
		wire.ClusterApplicationBasic, ApplicationBasicAttrApplicationName, "ApplicationName",
		decodeString,
	}
	ApplicationBasicProductID = Attribute{
		wire.ClusterApplicationBasic, ApplicationBasicAttrProductID, "ProductID",
		decodeUint32,
	}
	ApplicationBasicApplicationVersion = Attribute{
		wire.ClusterApplicationBasic, ApplicationBasicAttrApplicationVersion, "ApplicationVersion",
		decodeString,
	}
)
