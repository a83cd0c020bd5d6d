// Package wire defines the CBOR wire format types for the TVCast protocol.
//
// TVCast uses CBOR (RFC 8949) with integer keys for efficient encoding.
// Interaction messages are length-prefixed and transmitted over TLS 1.3;
// the commissioner identification declaration travels as a single UDP
// datagram.
//
// # Message Types
//
// There are three primary interaction message types:
//   - Request: Caster to commissionee (Read, Invoke, Subscribe, Unsubscribe)
//   - Response: Commissionee to caster (success or error)
//   - Report: Commissionee to caster (subscription updates)
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. The key mappings are
// defined as constants in this package.
//
// # Nullable vs Absent
//
// TVCast distinguishes between nullable values and absent keys:
//   - Key absent: Attribute not included in this message
//   - Key with value: Attribute has this value
//   - Key with null: Attribute value is explicitly null (cleared)
package wire
