package cluster

import (
	"fmt"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// TargetNavigator command IDs.
const (
	TargetNavigatorCmdNavigateTarget uint8 = 0x00
)

// TargetNavigator attribute IDs.
const (
	TargetNavigatorAttrTargetList    uint16 = 0x0000
	TargetNavigatorAttrCurrentTarget uint16 = 0x0001
)

// TargetNavigator commands.
var (
	TargetNavigatorNavigateTarget = Command{wire.ClusterTargetNavigator, TargetNavigatorCmdNavigateTarget, "NavigateTarget"}
)

// NavigateTargetParams selects a navigation target by identifier.
type NavigateTargetParams struct {
	Target uint8  `cbor:"1,keyasint"`
	Data   string `cbor:"2,keyasint,omitempty"`
}

// TargetInfo is one entry of the commissionee's target list.
type TargetInfo struct {
	Identifier uint8  `cbor:"1,keyasint"`
	Name       string `cbor:"2,keyasint"`
}

// TargetNavigator attributes.
var (
	TargetNavigatorTargetList = Attribute{
		wire.ClusterTargetNavigator, TargetNavigatorAttrTargetList, "TargetList",
		decodeTargetList,
	}
	TargetNavigatorCurrentTarget = Attribute{
		wire.ClusterTargetNavigator, TargetNavigatorAttrCurrentTarget, "CurrentTarget",
		decodeUint8,
	}
)

func decodeTargetList(raw any) (any, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array: %v (%T)", raw, raw)
	}

	targets := make([]TargetInfo, 0, len(arr))
	for i, item := range arr {
		m, err := decodeStructMap(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %v", i, err)
		}

		var info TargetInfo
		id, ok := asUint64(m[1])
		if !ok || id > 0xFF {
			return nil, fmt.Errorf("entry %d: bad identifier: %v", i, m[1])
		}
		info.Identifier = uint8(id)
		if name, ok := m[2].(string); ok {
			info.Name = name
		}
		targets = append(targets, info)
	}
	return targets, nil
}
