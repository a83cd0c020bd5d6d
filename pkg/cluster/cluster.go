package cluster

import (
	"fmt"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Command describes one invokable cluster command.
type Command struct {
	Cluster wire.ClusterID
	ID      uint8
	Name    string
}

// String returns "Cluster.Name".
func (c Command) String() string {
	return c.Cluster.String() + "." + c.Name
}

// InvokePayload wraps params into the wire payload for this command.
func (c Command) InvokePayload(params any) *wire.InvokePayload {
	return &wire.InvokePayload{
		CommandID:  c.ID,
		Parameters: params,
	}
}

// DecodeFunc converts a raw CBOR-decoded report value into its typed
// form.
type DecodeFunc func(raw any) (any, error)

// Attribute describes one observable cluster attribute and how to
// decode its reported values.
type Attribute struct {
	Cluster wire.ClusterID
	ID      uint16
	Name    string
	Decode  DecodeFunc
}

// String returns "Cluster.Name".
func (a Attribute) String() string {
	return a.Cluster.String() + "." + a.Name
}

// DecodeValue applies the attribute's decoder to a raw value. A nil
// decoder passes the value through.
func (a Attribute) DecodeValue(raw any) (any, error) {
	if a.Decode == nil {
		return raw, nil
	}
	v, err := a.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", wire.ErrDecode, a.String(), err)
	}
	return v, nil
}
