package service

import (
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
)

// Per-operation options. Every operation family carries:
//
//   - Delivery: the dispatch context continuations run on. Nil means
//     the engine's internal queue; callbacks must not block there.
//   - OnSent: the request-sent acknowledgement. Fires exactly once per
//     call, with nil after a successful transmit, or with the error
//     that prevented the request from going out. When OnSent receives
//     an error, no outcome continuation fires.
//
// Outcome continuations (OnSuccess/OnFailure and friends) fire at most
// once per call; at most one of them fires.

// InvokeOptions configures a command invocation.
type InvokeOptions struct {
	// EndpointID addresses the target endpoint on the commissionee.
	EndpointID uint8

	// Timeout overrides the per-request timeout. Zero means the
	// configured default.
	Timeout time.Duration

	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges request transmission.
	OnSent func(err error)

	// OnSuccess receives the response payload.
	OnSuccess func(result any)

	// OnFailure receives a non-success status, a timeout, or the
	// session-closure error.
	OnFailure func(err error)
}

// SubscribeOptions configures an attribute subscription.
type SubscribeOptions struct {
	// EndpointID addresses the target endpoint on the commissionee.
	EndpointID uint8

	// Timeout overrides the subscribe acknowledgement timeout.
	Timeout time.Duration

	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges request transmission.
	OnSent func(err error)

	// OnEstablished fires exactly once when the commissionee
	// acknowledges the subscription.
	OnEstablished func(subscriptionID uint32)

	// OnReport receives each decoded attribute value.
	OnReport func(value any)

	// OnFailure receives subscription errors: the acknowledgement
	// failure, per-report decode errors, or the session-closure error.
	// A decode error does not terminate the subscription.
	OnFailure func(err error)
}

// UnsubscribeOptions configures a subscription termination.
type UnsubscribeOptions struct {
	// Timeout overrides the per-request timeout.
	Timeout time.Duration

	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges request transmission.
	OnSent func(err error)

	// OnSuccess fires when the commissionee confirms the termination.
	OnSuccess func()

	// OnFailure receives a non-success status or a timeout.
	OnFailure func(err error)
}

// DiscoveryOptions configures a discovery run.
type DiscoveryOptions struct {
	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent fires once browsing has actually started, not when
	// commissioners are found.
	OnSent func(err error)

	// OnCommissionerFound fires for each commissioner appended to the
	// registry during this run.
	OnCommissionerFound func(rec *discovery.CommissionerRecord)
}

// UDCOptions configures a user-directed commissioning request.
type UDCOptions struct {
	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges datagram transmission. The request is
	// fire-and-forget: there is no outcome continuation, the
	// commissioner answers by connecting to the window.
	OnSent func(err error)
}

// ReconnectOptions configures a session resume with the last
// commissioned peer.
type ReconnectOptions struct {
	// Timeout bounds the dial. Zero means the transport default.
	Timeout time.Duration

	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges that the dial has started.
	OnSent func(err error)

	// OnComplete fires exactly once when the dial resolves: with the
	// peer's certificate fingerprint on success, or with the error
	// when the dial or the pin check fails.
	OnComplete func(fingerprint string, err error)
}

// WindowOptions configures a commissioning window.
type WindowOptions struct {
	// Timeout overrides the configured window duration.
	Timeout time.Duration

	// Delivery is the continuation delivery context.
	Delivery dispatch.Context

	// OnSent acknowledges that the window is open and advertised.
	OnSent func(err error)

	// OnComplete fires exactly once when the window resolves: with the
	// commissioner's certificate fingerprint on success, or with the
	// error when the window expires or is closed.
	OnComplete func(fingerprint string, err error)
}
