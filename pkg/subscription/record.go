package subscription

import (
	"errors"
	"fmt"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Subscription errors.
var (
	ErrInvalidInterval      = errors.New("invalid subscription interval")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotEstablished       = errors.New("subscription not established")
	ErrDuplicateID          = errors.New("subscription ID already in table")
)

// State is a subscription's lifecycle state.
type State uint8

const (
	// StateRequested means the subscribe request was sent and no
	// acknowledgement has arrived yet.
	StateRequested State = iota

	// StateEstablished means the commissionee acknowledged the
	// subscription and reports may arrive.
	StateEstablished

	// StateTerminated means the subscription ended: unsubscribed,
	// rejected, or lost with the session. Terminal.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRequested:
		return "REQUESTED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// DecodeFunc converts a raw report value into its typed form.
type DecodeFunc func(raw any) (any, error)

// Handlers are a record's continuations. Each is optional.
type Handlers struct {
	// OnEstablished fires exactly once, when the commissionee
	// acknowledges the subscription.
	OnEstablished func(subscriptionID uint32)

	// OnReport fires once per decoded report for the subscribed
	// attribute.
	OnReport func(value any)

	// OnFailure fires on a decode error (record stays established)
	// and exactly once on termination by session loss.
	OnFailure func(err error)
}

// Record is one attribute subscription held by the caster.
type Record struct {
	// SubscriptionID is assigned by the commissionee on establishment.
	// Zero while the record is still Requested.
	SubscriptionID uint32

	// Attribute path.
	EndpointID  uint8
	ClusterID   wire.ClusterID
	AttributeID uint16

	// Reporting intervals in seconds.
	MinInterval uint16
	MaxInterval uint16

	// Decode converts raw report values. Nil passes values through.
	Decode DecodeFunc

	Handlers Handlers

	state State
}

// NewRecord creates a Requested record for one attribute path.
// Returns ErrInvalidInterval when minInterval exceeds maxInterval.
func NewRecord(endpointID uint8, clusterID wire.ClusterID, attributeID uint16, minInterval, maxInterval uint16, h Handlers) (*Record, error) {
	if err := ValidateIntervals(minInterval, maxInterval); err != nil {
		return nil, err
	}
	return &Record{
		EndpointID:  endpointID,
		ClusterID:   clusterID,
		AttributeID: attributeID,
		MinInterval: minInterval,
		MaxInterval: maxInterval,
		Handlers:    h,
		state:       StateRequested,
	}, nil
}

// ValidateIntervals checks the reporting interval ordering.
func ValidateIntervals(minInterval, maxInterval uint16) error {
	if minInterval > maxInterval {
		return fmt.Errorf("%w: min %d > max %d", ErrInvalidInterval, minInterval, maxInterval)
	}
	return nil
}

// State returns the record's lifecycle state.
func (r *Record) State() State {
	return r.state
}

// SubscribePayload builds the wire payload for this record's subscribe
// request.
func (r *Record) SubscribePayload() *wire.SubscribePayload {
	return &wire.SubscribePayload{
		AttributeIDs: []uint16{r.AttributeID},
		MinInterval:  r.MinInterval,
		MaxInterval:  r.MaxInterval,
	}
}
