// Package commissioning implements caster commissioning using SPAKE2+.
//
// # Overview
//
// Commissioning is the process of pairing a caster with a commissioner
// (a TV or set-top box). The caster announces itself with a one-shot user
// directed commissioning (UDC) datagram, opens a commissioning window, and
// waits for the commissioner to connect in. SPAKE2+ (Password-Authenticated
// Key Exchange) lets the commissioner prove knowledge of the caster's setup
// passcode without transmitting it.
//
// # SPAKE2+ Protocol
//
// SPAKE2+ is an augmented PAKE protocol where:
//   - The client (commissioner) knows the password (setup passcode)
//   - The server (caster) holds only a verifier derived from the passcode
//   - Neither the password nor verifier is transmitted during the exchange
//   - Both parties derive the same shared secret
//
// The passcode itself is the 8-digit value from the caster's onboarding
// code (see the wire package), typically shown on screen or printed.
//
// # Commissioning Flow
//
//  1. Caster discovers commissioners via mDNS
//  2. Caster sends a UDC datagram to the chosen commissioner
//  3. Caster opens its commissioning window (TLS listener + mDNS advert)
//  4. Commissioner connects (TLS, certificates unverified at this point)
//  5. SPAKE2+ exchange using the passcode the user entered on the TV
//  6. Shared secret established and verified on both sides
//  7. Each side records the other's TLS certificate fingerprint
//  8. Commissioning complete - later sessions pin those fingerprints
//
// # Commissioning Window
//
// The window (see Window) stays open for a bounded time, 3 minutes by
// default. One SPAKE2+ exchange runs at a time; a failed attempt returns
// the window to OPEN until the timeout expires.
//
// # Cryptographic Parameters
//
//   - Curve: P-256 (NIST)
//   - Hash: SHA-256
//   - KDF: HKDF-SHA256
//   - MAC: HMAC-SHA256
package commissioning
