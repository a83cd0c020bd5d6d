// Package testharness provides an in-process commissioner fake. It
// dials a caster's open commissioning window, proves the setup
// passcode, and then services invoke and subscribe requests over the
// operational session, so end-to-end tests can run without a real TV.
package testharness

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/tvcast-protocol/tvcast-go/pkg/cert"
	"github.com/tvcast-protocol/tvcast-go/pkg/commissioning"
	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// RequestHandler produces the response for one incoming request. A nil
// response drops the request without answering.
type RequestHandler func(req *wire.Request) *wire.Response

// CommissionerConfig configures a fake commissioner.
type CommissionerConfig struct {
	// Name is the commissioner name declared during commissioning. It
	// also serves as the PASE client identity.
	Name string

	// Passcode is the setup passcode to prove. Must match the caster's.
	Passcode wire.Passcode

	// Identity is the TLS client certificate. Generated when empty.
	Identity tls.Certificate

	// OnRequest answers operational requests. When nil every request is
	// answered with an empty success response.
	OnRequest RequestHandler

	// Logger receives debug output. Discarded when nil.
	Logger *slog.Logger
}

// Commissioner is a fake commissioner that can commission a caster and
// hold the resulting operational session.
type Commissioner struct {
	config   CommissionerConfig
	identity tls.Certificate
	logger   *slog.Logger

	// Operational listener port declared during commissioning, set by
	// ListenOperational. Zero when the commissioner does not listen.
	operationalPort uint16
}

// NewCommissioner creates a fake commissioner, generating a TLS client
// identity when the config carries none.
func NewCommissioner(config CommissionerConfig) (*Commissioner, error) {
	if config.Name == "" {
		config.Name = "Fake Commissioner"
	}

	identity := config.Identity
	if len(identity.Certificate) == 0 {
		generated, err := cert.GenerateIdentity(config.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to generate identity: %w", err)
		}
		identity = generated.TLSCertificate()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Commissioner{
		config:   config,
		identity: identity,
		logger:   logger,
	}, nil
}

// Commission dials the caster at address, runs the PASE exchange
// against serverIdentity (the caster's advertised instance name), and
// declares commissioning complete. The returned session answers
// requests until closed.
func (c *Commissioner) Commission(ctx context.Context, address string, serverIdentity []byte) (*Session, error) {
	dialer := &tls.Dialer{Config: transport.NewCommissioningTLSConfig(c.identity)}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial caster: %w", err)
	}

	pase, err := commissioning.NewPASEClientSession(c.config.Passcode, []byte(c.config.Name), serverIdentity)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := pase.Handshake(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("PASE handshake failed: %w", err)
	}
	c.logger.Debug("passcode proof accepted", "caster", address)

	framer := transport.NewFramer(conn)
	complete := &commissioning.CommissioningComplete{
		MsgType:          commissioning.MsgCommissioningComplete,
		CommissionerName: c.config.Name,
		OperationalPort:  c.operationalPort,
	}
	data, err := commissioning.EncodePASEMessage(complete)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := framer.WriteFrame(data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare commissioning complete: %w", err)
	}

	sess := &Session{
		conn:      conn,
		framer:    framer,
		onRequest: c.config.OnRequest,
		logger:    c.logger,
		done:      make(chan struct{}),
	}
	go sess.serve()
	return sess, nil
}
