// Package connection provides retry and backoff primitives for outbound
// sends.
//
// Casting sessions are not auto-reconnected: once a session is lost the
// caller decides whether to discover and commission again. What this package
// covers is the narrower case of a send that fails while the session is
// still up.
//
// # Retry Policy
//
// A RetryPolicy makes a single attempt unless the caller configures more.
// Only send failures are candidates for another attempt; a request that
// reached the peer but timed out waiting for a response is never retried.
//
// # Backoff
//
// When a policy allows multiple attempts, delays between them follow
// exponential backoff with jitter:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// The default sequence is 1s, 2s, 4s, 8s, 16s, 32s, capped at 60s, and
// resets after a successful send.
package connection
