package wire

import (
	"fmt"
)

// CBOR map keys for message encoding.
// All TVCast messages use integer keys for efficiency.
const (
	// Common message keys
	KeyMessageID  = 1
	KeyOpOrStatus = 2 // Operation (request) or Status (response)
	KeyEndpointID = 3
	KeyClusterID  = 4
	KeyPayload    = 5

	// Report-specific keys (messageId=0 indicates report)
	KeySubscriptionID = 2 // Replaces operation/status for reports
)

// MessageID 0 is reserved to indicate a report message.
const ReportMessageID uint32 = 0

// Request represents a TVCast request message from caster to commissionee.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32
//	  2: operation,    // uint8: 1=Read, 2=Invoke, 3=Subscribe, 4=Unsubscribe
//	  3: endpointId,   // uint8
//	  4: clusterId,    // uint16
//	  5: payload       // operation-specific data
//	}
type Request struct {
	MessageID  uint32    `cbor:"1,keyasint"`
	Operation  Operation `cbor:"2,keyasint"`
	EndpointID uint8     `cbor:"3,keyasint"`
	ClusterID  ClusterID `cbor:"4,keyasint"`
	Payload    any       `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == ReportMessageID {
		return fmt.Errorf("messageId 0 is reserved for reports")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.ClusterID == 0 {
		return fmt.Errorf("clusterId 0 is reserved")
	}
	return nil
}

// Response represents a TVCast response message from commissionee to caster.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8: 0=success, or error code
//	  3: payload       // operation-specific response data (if success)
//	}
type Response struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Status    Status `cbor:"2,keyasint"`
	Payload   any    `cbor:"3,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Report represents a subscription report from commissionee to caster.
//
// CBOR encoding:
//
//	{
//	  1: 0,                // messageId 0 = report
//	  2: subscriptionId,   // uint32
//	  3: endpointId,       // uint8
//	  4: clusterId,        // uint16
//	  5: attributes        // map of changed attribute values
//	}
type Report struct {
	SubscriptionID uint32         `cbor:"2,keyasint"`
	EndpointID     uint8          `cbor:"3,keyasint"`
	ClusterID      ClusterID      `cbor:"4,keyasint"`
	Attributes     map[uint16]any `cbor:"5,keyasint"`
}

// ReadPayload represents the payload for a Read request.
//
// CBOR encoding: array of attribute IDs to read (empty = all)
type ReadPayload struct {
	AttributeIDs []uint16 `cbor:"1,keyasint,omitempty"`
}

// ExtractReadAttributeIDs extracts attribute IDs from a read request payload.
// After CBOR round-trip the Payload is a raw map (map[any]any), not
// *ReadPayload, so this function handles both typed and untyped forms.
func ExtractReadAttributeIDs(payload any) []uint16 {
	if payload == nil {
		return nil
	}

	// Typed form (used before encoding)
	if rp, ok := payload.(*ReadPayload); ok {
		return rp.AttributeIDs
	}

	// Raw CBOR map: {uint64(1): []any{uint64(id), ...}}
	var arr []any
	switch m := payload.(type) {
	case map[any]any:
		if v, ok := m[uint64(1)]; ok {
			arr, _ = v.([]any)
		}
	case map[uint64]any:
		if v, ok := m[uint64(1)]; ok {
			arr, _ = v.([]any)
		}
	default:
		return nil
	}

	if len(arr) == 0 {
		return nil
	}

	ids := make([]uint16, 0, len(arr))
	for _, item := range arr {
		switch v := item.(type) {
		case uint64:
			ids = append(ids, uint16(v))
		case int64:
			ids = append(ids, uint16(v))
		case float64:
			ids = append(ids, uint16(v))
		}
	}
	return ids
}

// ReadResponsePayload represents the payload for a Read response.
// Keys are attribute IDs, values are attribute values.
type ReadResponsePayload map[uint16]any

// ExtractAttributeValues extracts an attribute-value map from a raw
// CBOR-decoded value. After CBOR round-trip the map arrives as
// map[any]any with uint64 keys.
func ExtractAttributeValues(payload any) map[uint16]any {
	if payload == nil {
		return nil
	}
	if av, ok := payload.(map[uint16]any); ok {
		return av
	}
	if av, ok := payload.(ReadResponsePayload); ok {
		return map[uint16]any(av)
	}

	result := make(map[uint16]any)
	switch m := payload.(type) {
	case map[any]any:
		for k, v := range m {
			switch key := k.(type) {
			case uint64:
				result[uint16(key)] = v
			case int64:
				result[uint16(key)] = v
			}
		}
	case map[uint64]any:
		for k, v := range m {
			result[uint16(k)] = v
		}
	default:
		return nil
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// SubscribePayload represents the payload for a Subscribe request.
//
// CBOR encoding:
//
//	{
//	  1: attributeIds,  // array (empty = all)
//	  2: minInterval,   // uint16: minimum seconds between reports
//	  3: maxInterval    // uint16: maximum seconds without a report (heartbeat)
//	}
type SubscribePayload struct {
	AttributeIDs []uint16 `cbor:"1,keyasint,omitempty"`
	MinInterval  uint16   `cbor:"2,keyasint,omitempty"`
	MaxInterval  uint16   `cbor:"3,keyasint,omitempty"`
}

// ExtractSubscribePayload extracts a subscribe payload from a raw
// CBOR-decoded value. Returns nil if there is no payload.
func ExtractSubscribePayload(payload any) *SubscribePayload {
	if payload == nil {
		return nil
	}
	if sp, ok := payload.(*SubscribePayload); ok {
		return sp
	}

	sp := &SubscribePayload{}
	var m map[uint64]any

	switch raw := payload.(type) {
	case map[any]any:
		m = make(map[uint64]any, len(raw))
		for k, v := range raw {
			if key, ok := k.(uint64); ok {
				m[key] = v
			}
		}
	case map[uint64]any:
		m = raw
	default:
		return nil
	}

	// key 1: attributeIDs
	if arr, ok := m[1].([]any); ok {
		for _, item := range arr {
			switch v := item.(type) {
			case uint64:
				sp.AttributeIDs = append(sp.AttributeIDs, uint16(v))
			case int64:
				sp.AttributeIDs = append(sp.AttributeIDs, uint16(v))
			}
		}
	}
	// key 2: minInterval
	if v, ok := m[2].(uint64); ok {
		sp.MinInterval = uint16(v)
	}
	// key 3: maxInterval
	if v, ok := m[3].(uint64); ok {
		sp.MaxInterval = uint16(v)
	}

	return sp
}

// SubscribeResponsePayload represents the payload for a Subscribe response.
//
// CBOR encoding:
//
//	{
//	  1: subscriptionId,  // uint32
//	  2: currentValues    // map of current attribute values (priming report)
//	}
type SubscribeResponsePayload struct {
	SubscriptionID uint32         `cbor:"1,keyasint"`
	CurrentValues  map[uint16]any `cbor:"2,keyasint,omitempty"`
}

// ExtractSubscribeResponsePayload extracts a subscribe response payload
// from a raw CBOR-decoded value. Returns nil if there is no payload or
// the shape does not match.
func ExtractSubscribeResponsePayload(payload any) *SubscribeResponsePayload {
	if payload == nil {
		return nil
	}
	if sp, ok := payload.(*SubscribeResponsePayload); ok {
		return sp
	}

	var m map[uint64]any
	switch raw := payload.(type) {
	case map[any]any:
		m = make(map[uint64]any, len(raw))
		for k, v := range raw {
			if key, ok := k.(uint64); ok {
				m[key] = v
			}
		}
	case map[uint64]any:
		m = raw
	default:
		return nil
	}

	sp := &SubscribeResponsePayload{}

	// key 1: subscriptionId
	switch v := m[1].(type) {
	case uint64:
		sp.SubscriptionID = uint32(v)
	case int64:
		sp.SubscriptionID = uint32(v)
	default:
		return nil
	}

	// key 2: currentValues (priming report)
	if values := ExtractAttributeValues(m[2]); len(values) > 0 {
		sp.CurrentValues = values
	}

	return sp
}

// UnsubscribePayload represents the payload for an Unsubscribe request.
// The request addresses the endpoint and cluster of the original Subscribe
// so routing stays uniform across operations.
//
// CBOR encoding:
//
//	{
//	  1: subscriptionId  // uint32: subscription to cancel
//	}
type UnsubscribePayload struct {
	SubscriptionID uint32 `cbor:"1,keyasint"`
}

// InvokePayload represents the payload for an Invoke request.
//
// CBOR encoding:
//
//	{
//	  1: commandId,   // uint8
//	  2: parameters   // command-specific parameters
//	}
type InvokePayload struct {
	CommandID  uint8 `cbor:"1,keyasint"`
	Parameters any   `cbor:"2,keyasint,omitempty"`
}

// InvokeResponsePayload represents the payload for an Invoke response.
// Structure is command-specific.
type InvokeResponsePayload any

// ErrorPayload represents additional error information in a response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ControlMessage represents a transport-level control message.
// These are separate from the request/response/report model.
type ControlMessage struct {
	Type     ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}
