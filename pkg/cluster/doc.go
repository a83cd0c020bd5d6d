// Package cluster describes the command and attribute surface of a
// commissionee as descriptor tables.
//
// Each cluster file declares its command descriptors (cluster, command
// ID, name), its attribute descriptors (with a decoder from raw report
// values to typed Go values), and the CBOR parameter structs the
// commands take. The engine's Invoke and Subscribe operations are
// generic over these descriptors; adding a cluster means adding a
// descriptor file, not engine methods.
package cluster
