package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
)

// Reconnect dials the last commissioned peer's operational endpoint,
// pinned to its recorded certificate fingerprint, and adopts the
// connection as the live session without a new commissioning exchange.
// It requires a peer on record with a known operational port;
// otherwise the call fails fast through OnSent with ErrNoPeerOnRecord.
// A successful dial moves the session to Commissioned and resolves
// OnComplete with the peer's fingerprint; a failed dial moves it to
// Failed and resolves OnComplete with the error.
func (s *CasterService) Reconnect(opts ReconnectOptions) {
	ok := s.submit(func() {
		if s.state != StateIdle && s.state != StateDiscovering {
			err := fmt.Errorf("%w: cannot reconnect in state %s", ErrInvalidArgument, s.state)
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		peer := s.lastPeer
		if peer == nil || peer.Fingerprint == "" {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, ErrNoPeerOnRecord))
			return
		}
		if peer.Address == "" || peer.Port == 0 {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent,
				fmt.Errorf("%w: peer has no operational endpoint", ErrNoPeerOnRecord)))
			return
		}

		client, err := transport.NewClient(transport.ClientConfig{
			TLSConfig: &transport.TLSConfig{
				Certificate:         s.identity.TLSCertificate(),
				ExpectedFingerprint: peer.Fingerprint,
			},
			ConnectTimeout: opts.Timeout,
			Logger:         s.plog,
		})
		if err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		addr := net.JoinHostPort(peer.Address, strconv.Itoa(int(peer.Port)))
		s.setState(StateReconnecting)
		s.logger.Info("reconnecting to commissioned peer",
			"addr", addr, "fingerprint", peer.Fingerprint)
		s.deliver(opts.Delivery, wrapSent(opts.OnSent, nil))

		go func() {
			conn, dialErr := client.Connect(context.Background(), addr)
			s.engine.Post(func() {
				s.finishReconnect(conn, dialErr, opts)
			})
		}()
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// finishReconnect lands the dial result back on the engine queue.
func (s *CasterService) finishReconnect(conn *transport.ClientConn, dialErr error, opts ReconnectOptions) {
	if s.state != StateReconnecting {
		// The service was torn down while the dial was in flight.
		if conn != nil {
			conn.Close()
		}
		if opts.OnComplete != nil {
			s.deliver(opts.Delivery, func() { opts.OnComplete("", ErrSessionClosed) })
		}
		return
	}

	if dialErr != nil {
		s.logger.Info("reconnect failed", "err", dialErr)
		s.setState(StateFailed)
		if opts.OnComplete != nil {
			s.deliver(opts.Delivery, func() { opts.OnComplete("", dialErr) })
		}
		return
	}

	fingerprint := transport.PeerFingerprint(conn.TLSState())
	s.session = conn
	s.stateMu.Lock()
	s.fingerprint = fingerprint
	s.stateMu.Unlock()
	s.setState(StateCommissioned)

	if s.lastPeer != nil {
		refreshed := *s.lastPeer
		refreshed.LastSeenAt = time.Now().UTC()
		if err := s.persistState(&refreshed); err != nil {
			s.logger.Warn("failed to persist reconnected peer", "err", err)
		}
	}

	conn.Run(transport.ConnHandler{
		OnMessage: func(data []byte) {
			s.engine.Post(func() {
				if s.session == sessionConn(conn) {
					s.handleSessionMessage(data)
				}
			})
		},
		OnClosed: func(err error) {
			s.engine.Post(func() { s.handleClientDisconnect(conn, err) })
		},
	})

	s.logger.Info("session resumed", "fingerprint", fingerprint)
	s.emit(Event{Type: EventSessionResumed, State: s.state, Fingerprint: fingerprint})
	if opts.OnComplete != nil {
		s.deliver(opts.Delivery, func() { opts.OnComplete(fingerprint, nil) })
	}
}

// handleClientDisconnect handles the dialed session ending. Loss of the
// live session fails everything outstanding in one cascade, the same as
// losing an accepted one. Engine queue only.
func (s *CasterService) handleClientDisconnect(conn *transport.ClientConn, err error) {
	if s.session == nil || s.session != sessionConn(conn) {
		return
	}
	s.logger.Info("session connection lost", "err", err)
	s.emit(Event{Type: EventSessionLost, State: s.state})
	s.teardown(ErrSessionClosed, StateClosed)
}
