package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/commissioning"
	"github.com/tvcast-protocol/tvcast-go/pkg/connection"
	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
	"github.com/tvcast-protocol/tvcast-go/pkg/interaction"
	"github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrAlreadyStarted  = errors.New("service already started")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotConnected    = errors.New("not connected")
	ErrSendFailure     = errors.New("send failed")
	ErrSessionClosed   = errors.New("session closed")
	ErrWindowNotOpen   = errors.New("commissioning window not open")
	ErrNoPeerOnRecord  = errors.New("no commissioned peer on record")
)

// SessionState represents the caster's session state.
//
// The session advances monotonically; Failed and Closed are terminal
// and reachable from every state. A new session requires a new service
// instance.
type SessionState uint8

const (
	// StateIdle - service started, no session activity.
	StateIdle SessionState = iota

	// StateDiscovering - browsing for commissioners.
	StateDiscovering

	// StateConnectingUDC - a user-directed commissioning datagram is in flight.
	StateConnectingUDC

	// StateAwaitingCommissioning - window open, waiting for a commissioner.
	StateAwaitingCommissioning

	// StateReconnecting - dialing the last commissioned peer.
	StateReconnecting

	// StateCommissioned - a commissioner completed the exchange; the
	// session is live and accepts Invoke/Subscribe/Unsubscribe.
	StateCommissioned

	// StateFailed - commissioning failed or the window expired.
	StateFailed

	// StateClosed - the service was closed or the session was lost.
	StateClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDiscovering:
		return "DISCOVERING"
	case StateConnectingUDC:
		return "CONNECTING_UDC"
	case StateAwaitingCommissioning:
		return "AWAITING_COMMISSIONING"
	case StateReconnecting:
		return "RECONNECTING"
	case StateCommissioned:
		return "COMMISSIONED"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CasterConfig configures a CasterService.
type CasterConfig struct {
	// DeviceName is the user-visible name advertised to commissioners.
	DeviceName string

	// VendorID identifies the caster vendor.
	VendorID uint16

	// ProductID identifies the caster product.
	ProductID uint16

	// DeviceType is an optional device type for mDNS TXT records.
	DeviceType uint32

	// Discriminator identifies this caster during commissioning (0-4095).
	// Zero means generate one (or restore the persisted value).
	Discriminator uint16

	// Passcode is the 8-digit setup passcode for SPAKE2+.
	// Zero means generate one (or restore the persisted value).
	Passcode wire.Passcode

	// ListenAddress is the commissioning window listen address
	// (e.g., ":8443").
	ListenAddress string

	// DataDir is where identity and state are persisted.
	// Empty means ephemeral: a fresh identity and onboarding payload
	// per service instance.
	DataDir string

	// WindowTimeout is the default commissioning window duration.
	WindowTimeout time.Duration

	// RequestTimeout is the default per-request timeout.
	RequestTimeout time.Duration

	// Retry controls how failed sends are retried. The default policy
	// makes a single attempt.
	Retry connection.RetryPolicy

	// Browser finds commissioners. Nil means mDNS.
	Browser discovery.Browser

	// Advertiser announces the commissionable service while the window
	// is open. Nil means mDNS.
	Advertiser discovery.Advertiser

	// Interface restricts mDNS and UDC traffic to one network interface.
	// Empty means all interfaces.
	Interface string

	// EventDelivery is the context events are delivered on.
	// Nil means each event is delivered on its own goroutine.
	EventDelivery dispatch.Context

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLog receives protocol-level frame and message events.
	ProtocolLog log.Logger
}

// DefaultCasterConfig returns a CasterConfig with sensible defaults.
func DefaultCasterConfig() CasterConfig {
	return CasterConfig{
		ListenAddress:  ":8443",
		WindowTimeout:  commissioning.DefaultWindowTimeout,
		RequestTimeout: interaction.DefaultRequestTimeout,
		Retry:          connection.DefaultRetryPolicy(),
	}
}

// Validate checks if the config is valid.
func (c *CasterConfig) Validate() error {
	if c.DeviceName == "" {
		return ErrInvalidConfig
	}
	if c.VendorID == 0 {
		return ErrInvalidConfig
	}
	if c.Discriminator > discovery.MaxDiscriminator {
		return ErrInvalidConfig
	}
	if c.Passcode != 0 {
		if err := c.Passcode.Validate(); err != nil {
			return ErrInvalidConfig
		}
	}
	return nil
}

// Event types for service callbacks.
type EventType uint8

const (
	// EventStateChanged - the session state changed.
	EventStateChanged EventType = iota

	// EventCommissionerDiscovered - a commissioner was found via mDNS.
	EventCommissionerDiscovered

	// EventCommissioningOpened - the commissioning window opened.
	EventCommissioningOpened

	// EventCommissioningClosed - the commissioning window closed.
	EventCommissioningClosed

	// EventCommissioned - a commissioner completed the exchange.
	EventCommissioned

	// EventSessionLost - the live session's transport was lost.
	EventSessionLost

	// EventSessionResumed - a session with the last commissioned peer
	// was re-established without a new commissioning exchange.
	EventSessionResumed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "STATE_CHANGED"
	case EventCommissionerDiscovered:
		return "COMMISSIONER_DISCOVERED"
	case EventCommissioningOpened:
		return "COMMISSIONING_OPENED"
	case EventCommissioningClosed:
		return "COMMISSIONING_CLOSED"
	case EventCommissioned:
		return "COMMISSIONED"
	case EventSessionLost:
		return "SESSION_LOST"
	case EventSessionResumed:
		return "SESSION_RESUMED"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	// Type is the event type.
	Type EventType

	// State is the session state after the event.
	State SessionState

	// Commissioner is the discovered record (for discovery events).
	Commissioner *discovery.CommissionerRecord

	// Fingerprint is the peer certificate fingerprint (for
	// commissioning events).
	Fingerprint string

	// Error is set if the event reports an error.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)
