// Package interaction tracks in-flight requests for the caster engine.
//
// Every outgoing request gets a correlation ID from the Correlator.
// When the matching response arrives it is routed to the request's
// completion function; requests that never hear back complete with
// ErrRequestTimeout, and session loss fails the whole table at once
// through FailAll. Each tracked request completes exactly once.
package interaction
