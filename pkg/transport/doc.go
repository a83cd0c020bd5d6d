// Package transport provides the casting transport layer.
//
// The transport layer handles:
//   - TLS 1.3 connections (self-signed certificates, fingerprint pinning)
//   - Length-prefixed message framing
//   - Keep-alive ping/pong for session liveness
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│         TLS 1.3                │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The caster is the listening side: when a commissioning window is open it
// accepts the commissioner's inbound connection, negotiated under the
// "tvcast-comm/1" ALPN protocol. Operational sessions use "tvcast/1".
//
// # TLS Requirements
//
// TLS 1.3 with no fallback to earlier versions. Endpoints present
// self-signed certificates; there are no chains to verify. A peer is either
// pinned by certificate fingerprint or authenticated by the passcode proof
// run over the fresh channel during commissioning.
//
// # Keep-Alive
//
// Connection liveness is monitored using ping/pong messages:
//   - Ping interval: 30 seconds
//   - Pong timeout: 5 seconds
//   - Max missed pongs: 3
//   - Maximum detection delay: 95 seconds
package transport
