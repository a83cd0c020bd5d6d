package testharness

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
)

// OperationalListener accepts a caster's reconnect dials and serves
// each accepted connection as an operational Session.
type OperationalListener struct {
	ln       net.Listener
	port     uint16
	owner    *Commissioner
	sessions chan *Session
	closed   sync.Once
}

// ListenOperational starts a TLS listener at address (use
// "127.0.0.1:0" for a free port) presenting the commissioner's
// identity. The listen port is declared as the operational endpoint in
// subsequent Commission calls, so a caster that later reconnects
// lands here.
func (c *Commissioner) ListenOperational(address string) (*OperationalListener, error) {
	tlsConf, err := transport.NewServerTLSConfig(&transport.TLSConfig{Certificate: c.identity})
	if err != nil {
		return nil, err
	}

	ln, err := tls.Listen("tcp", address, tlsConf)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unexpected listener address %v", ln.Addr())
	}
	c.operationalPort = uint16(addr.Port)

	l := &OperationalListener{
		ln:       ln,
		port:     c.operationalPort,
		owner:    c,
		sessions: make(chan *Session, 4),
	}
	go l.acceptLoop()
	return l, nil
}

// Port returns the listen port.
func (l *OperationalListener) Port() uint16 {
	return l.port
}

// Sessions delivers each accepted operational session.
func (l *OperationalListener) Sessions() <-chan *Session {
	return l.sessions
}

// Close stops the listener. Already accepted sessions keep running.
func (l *OperationalListener) Close() error {
	var err error
	l.closed.Do(func() { err = l.ln.Close() })
	return err
}

func (l *OperationalListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}

		sess := &Session{
			conn:      conn,
			framer:    transport.NewFramer(conn),
			onRequest: l.owner.config.OnRequest,
			logger:    l.owner.logger,
			done:      make(chan struct{}),
		}
		go sess.serve()

		select {
		case l.sessions <- sess:
		default:
			l.owner.logger.Debug("dropping unconsumed session")
			conn.Close()
		}
	}
}
