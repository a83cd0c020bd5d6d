package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/commissioning"
	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
	"github.com/tvcast-protocol/tvcast-go/pkg/persistence"
	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// udcSendTimeout bounds the one-shot UDC datagram send.
const udcSendTimeout = 5 * time.Second

// paseAttempt tracks one in-progress passcode proof. At most one runs
// at a time; the window's PASE slot is claimed when the first request
// frame arrives, not when the connection opens.
type paseAttempt struct {
	conn      *transport.ServerConn
	sessionID string
	spake     *commissioning.SPAKE2PlusServer
	confirmed bool
}

// SendUserDirectedCommissioningRequest sends a one-shot UDP datagram
// asking the commissioner at address:port to commission this caster.
// The session state is ConnectingUDC for the duration of the send and
// returns to the prior state afterwards. Fire-and-forget: the
// commissioner answers by connecting to an open window.
func (s *CasterService) SendUserDirectedCommissioningRequest(address string, port uint16, opts UDCOptions) {
	ok := s.submit(func() {
		if s.state != StateIdle && s.state != StateDiscovering {
			err := fmt.Errorf("%w: cannot send UDC request in state %s", ErrInvalidArgument, s.state)
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		decl := &wire.IdentificationDeclaration{
			InstanceName: s.instanceName,
			ListenPort:   s.listenPort(),
			DeviceName:   s.config.DeviceName,
			VendorID:     s.config.VendorID,
			ProductID:    s.config.ProductID,
			DeviceType:   s.config.DeviceType,
		}
		payload, err := wire.EncodeUDCMessage(decl)
		if err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		prior := s.state
		s.setState(StateConnectingUDC)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), udcSendTimeout)
			defer cancel()
			sendErr := commissioning.SendUDCDatagram(ctx, address, port, payload,
				commissioning.UDCSendOptions{Interface: s.config.Interface})

			s.engine.Post(func() {
				if s.state == StateConnectingUDC {
					s.setState(prior)
				}
				if sendErr != nil {
					sendErr = fmt.Errorf("%w: %v", ErrSendFailure, sendErr)
					s.logger.Debug("UDC send failed", "addr", address, "err", sendErr)
				}
				s.deliver(opts.Delivery, wrapSent(opts.OnSent, sendErr))
			})
		}()
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// OpenBasicCommissioningWindow starts the TLS listener, advertises the
// commissionable service, and arms the window timer. A commissioner
// that connects and proves knowledge of the setup passcode moves the
// session to Commissioned and resolves OnComplete with its certificate
// fingerprint. Window expiry moves the session to Failed and resolves
// OnComplete with the error.
func (s *CasterService) OpenBasicCommissioningWindow(opts WindowOptions) {
	ok := s.submit(func() {
		// ConnectingUDC is allowed: the natural flow sends the UDC
		// datagram and opens the window in the same breath, before the
		// send completion posts back. The completion restores the prior
		// state only while still ConnectingUDC, so it cannot clobber
		// AwaitingCommissioning.
		if s.state != StateIdle && s.state != StateDiscovering && s.state != StateConnectingUDC {
			err := fmt.Errorf("%w: cannot open window in state %s", ErrInvalidArgument, s.state)
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		timeout := opts.Timeout
		if timeout == 0 {
			timeout = s.config.WindowTimeout
		}
		if err := s.window.SetTimeout(timeout); err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, fmt.Errorf("%w: %v", ErrInvalidArgument, err)))
			return
		}

		server, err := transport.NewServer(transport.ServerConfig{
			TLSConfig: &transport.TLSConfig{
				Certificate: s.identity.TLSCertificate(),
			},
			Address:           s.config.ListenAddress,
			RequireClientCert: true,
			Logger:            s.plog,
			OnMessage: func(conn *transport.ServerConn, msg []byte) {
				s.engine.Post(func() { s.handleServerMessage(conn, msg) })
			},
			OnDisconnect: func(conn *transport.ServerConn) {
				s.engine.Post(func() { s.handleServerDisconnect(conn) })
			},
			OnError: func(conn *transport.ServerConn, err error) {
				s.logger.Debug("listener error", "conn", conn.ConnID(), "err", err)
			},
		})
		if err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}
		if err := server.Start(context.Background()); err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		port := s.listenPort()
		if addr, ok := server.Addr().(*net.TCPAddr); ok {
			port = uint16(addr.Port)
		}
		info := &discovery.CommissionableInfo{
			InstanceName:  s.instanceName,
			Discriminator: s.onboarding.Discriminator,
			VendorID:      s.config.VendorID,
			ProductID:     s.config.ProductID,
			DeviceName:    s.config.DeviceName,
			DeviceType:    s.config.DeviceType,
			Port:          port,
		}
		if err := s.advertiser.AdvertiseCommissionable(context.Background(), info); err != nil {
			server.Stop()
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, fmt.Errorf("advertise failed: %w", err)))
			return
		}
		s.advertising = true

		s.window.OnTimeout(func() {
			s.engine.Post(func() { s.windowExpired() })
		})
		if err := s.window.Open(); err != nil {
			s.stopAdvertising()
			server.Stop()
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}

		s.server = server
		s.windowOpts = &opts
		s.setState(StateAwaitingCommissioning)
		s.emit(Event{Type: EventCommissioningOpened, State: s.state})
		s.logger.Info("commissioning window opened",
			"addr", s.config.ListenAddress,
			"discriminator", s.onboarding.Discriminator,
			"timeout", timeout)
		s.deliver(opts.Delivery, wrapSent(opts.OnSent, nil))
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// windowExpired handles the window timer firing. Engine queue only.
func (s *CasterService) windowExpired() {
	if s.state != StateAwaitingCommissioning {
		return
	}
	s.logger.Info("commissioning window expired")
	s.pase = nil
	s.closeWindow(fmt.Errorf("%w: window expired", commissioning.ErrCommissioningFailed))
	s.setState(StateFailed)
}

// closeWindow resolves the pending window continuation with the given
// cause, stops advertising, and stops the listener unless a live
// session still runs on it. Engine queue only.
func (s *CasterService) closeWindow(cause error) {
	if s.windowOpts != nil {
		opts := s.windowOpts
		s.windowOpts = nil
		if opts.OnComplete != nil {
			s.deliver(opts.Delivery, func() { opts.OnComplete("", cause) })
		}
		s.emit(Event{Type: EventCommissioningClosed, State: s.state, Error: cause})
	}
	s.window.Close()
	s.stopAdvertising()
	if s.server != nil && s.session == nil {
		server := s.server
		s.server = nil
		server.Stop()
	}
}

func (s *CasterService) stopAdvertising() {
	if !s.advertising {
		return
	}
	s.advertising = false
	if err := s.advertiser.StopCommissionable(); err != nil {
		s.logger.Debug("failed to stop commissionable advertisement", "err", err)
	}
}

// handleServerMessage routes one frame from the listener. Frames on the
// live session carry interaction messages; frames on any other
// connection carry the commissioning exchange. Engine queue only.
func (s *CasterService) handleServerMessage(conn *transport.ServerConn, data []byte) {
	if s.session != nil && s.session == sessionConn(conn) {
		s.handleSessionMessage(data)
		return
	}
	s.handleCommissioningMessage(conn, data)
}

// handleCommissioningMessage advances the passcode proof by one step.
func (s *CasterService) handleCommissioningMessage(conn *transport.ServerConn, data []byte) {
	msg, err := commissioning.DecodePASEMessage(data)
	if err != nil {
		s.logger.Debug("bad commissioning frame", "conn", conn.ConnID(), "err", err)
		s.sendCommissioningError(conn, commissioning.ErrCodeInternalError, "malformed message")
		conn.Close()
		return
	}

	switch m := msg.(type) {
	case *commissioning.PASERequest:
		s.handlePASERequest(conn, m)
	case *commissioning.PASEConfirm:
		s.handlePASEConfirm(conn, m)
	case *commissioning.CommissioningComplete:
		s.handleCommissioningComplete(conn, m)
	default:
		s.sendCommissioningError(conn, commissioning.ErrCodeInternalError,
			fmt.Sprintf("unexpected message type %d", commissioning.MessageType(msg)))
		conn.Close()
	}
}

// handlePASERequest claims the window's PASE slot and answers with the
// caster's public value. The verifier is derived from the caster's own
// passcode and the identity the commissioner declared.
func (s *CasterService) handlePASERequest(conn *transport.ServerConn, req *commissioning.PASERequest) {
	if s.pase != nil {
		s.sendCommissioningError(conn, commissioning.ErrCodeWindowClosed, "commissioning busy")
		conn.Close()
		return
	}

	sessionID, err := s.window.BeginPASE()
	if err != nil {
		s.sendCommissioningError(conn, commissioning.ErrCodeWindowClosed, "window closed")
		conn.Close()
		return
	}

	serverIdentity := []byte(s.instanceName)
	verifier, err := commissioning.GenerateVerifier(s.onboarding.Passcode, req.ClientIdentity, serverIdentity)
	if err != nil {
		s.window.EndPASE(sessionID, false)
		s.sendCommissioningError(conn, commissioning.ErrCodeInternalError, "verifier generation failed")
		conn.Close()
		return
	}
	spake, err := commissioning.NewSPAKE2PlusServer(verifier, serverIdentity)
	if err != nil {
		s.window.EndPASE(sessionID, false)
		s.sendCommissioningError(conn, commissioning.ErrCodeInternalError, "handshake setup failed")
		conn.Close()
		return
	}
	if err := spake.ProcessClientValue(req.PublicValue); err != nil {
		s.window.EndPASE(sessionID, false)
		s.sendCommissioningError(conn, commissioning.ErrCodeInvalidPublicKey, "invalid public key")
		conn.Close()
		return
	}

	resp := &commissioning.PASEResponse{
		MsgType:     commissioning.MsgPASEResponse,
		PublicValue: spake.PublicValue(),
	}
	if err := s.sendPASEMessage(conn, resp); err != nil {
		s.window.EndPASE(sessionID, false)
		conn.Close()
		return
	}

	s.pase = &paseAttempt{conn: conn, sessionID: sessionID, spake: spake}
	s.logger.Debug("PASE exchange started", "conn", conn.ConnID())
}

// handlePASEConfirm verifies the commissioner's confirmation and
// answers with the caster's own. A failed confirmation returns the
// window to open for the remainder of its timeout.
func (s *CasterService) handlePASEConfirm(conn *transport.ServerConn, confirm *commissioning.PASEConfirm) {
	attempt := s.pase
	if attempt == nil || attempt.conn != conn {
		s.sendCommissioningError(conn, commissioning.ErrCodeWindowClosed, "no exchange in progress")
		conn.Close()
		return
	}

	errorCode := commissioning.ErrCodeSuccess
	if err := attempt.spake.VerifyClientConfirmation(confirm.Confirmation); err != nil {
		errorCode = commissioning.ErrCodeConfirmFailed
	}

	complete := &commissioning.PASEComplete{
		MsgType:      commissioning.MsgPASEComplete,
		Confirmation: attempt.spake.Confirmation(),
		ErrorCode:    errorCode,
	}
	if err := s.sendPASEMessage(conn, complete); err != nil {
		s.failPASEAttempt(attempt)
		return
	}

	if errorCode != commissioning.ErrCodeSuccess {
		s.logger.Info("commissioner failed the passcode proof", "conn", conn.ConnID())
		s.failPASEAttempt(attempt)
		return
	}

	attempt.confirmed = true
}

// handleCommissioningComplete adopts the connection as the live session.
func (s *CasterService) handleCommissioningComplete(conn *transport.ServerConn, msg *commissioning.CommissioningComplete) {
	attempt := s.pase
	if attempt == nil || attempt.conn != conn || !attempt.confirmed {
		s.sendCommissioningError(conn, commissioning.ErrCodeWindowClosed, "exchange not confirmed")
		conn.Close()
		return
	}

	fingerprint := transport.PeerFingerprint(conn.TLSState())
	s.window.EndPASE(attempt.sessionID, true)
	s.pase = nil
	s.session = conn

	s.stateMu.Lock()
	s.fingerprint = fingerprint
	s.stateMu.Unlock()

	s.stopAdvertising()
	s.setState(StateCommissioned)

	// The record keeps the peer's host and its declared operational
	// port, not the ephemeral source port of this connection, so a
	// later Reconnect has something to dial.
	host := conn.RemoteAddr().String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	now := time.Now().UTC()
	peer := &persistence.CommissionedPeer{
		Fingerprint:    fingerprint,
		DeviceName:     msg.CommissionerName,
		Address:        host,
		Port:           msg.OperationalPort,
		CommissionedAt: now,
		LastSeenAt:     now,
	}
	if err := s.persistState(peer); err != nil {
		s.logger.Warn("failed to persist commissioned peer", "err", err)
	}

	s.logger.Info("commissioned",
		"commissioner", msg.CommissionerName,
		"fingerprint", fingerprint)
	s.emit(Event{Type: EventCommissioned, State: s.state, Fingerprint: fingerprint})

	if s.windowOpts != nil {
		opts := s.windowOpts
		s.windowOpts = nil
		if opts.OnComplete != nil {
			s.deliver(opts.Delivery, func() { opts.OnComplete(fingerprint, nil) })
		}
	}
}

// failPASEAttempt drops the current attempt and reopens the window for
// the remainder of its timeout.
func (s *CasterService) failPASEAttempt(attempt *paseAttempt) {
	s.window.EndPASE(attempt.sessionID, false)
	if s.pase == attempt {
		s.pase = nil
	}
	attempt.conn.Close()
}

// handleServerDisconnect handles a listener connection closing. Loss of
// the live session fails everything outstanding in one cascade; loss of
// a mid-exchange connection just reopens the window.
func (s *CasterService) handleServerDisconnect(conn *transport.ServerConn) {
	if s.session != nil && s.session == sessionConn(conn) {
		s.logger.Info("session connection lost")
		s.emit(Event{Type: EventSessionLost, State: s.state})
		s.teardown(ErrSessionClosed, StateClosed)
		return
	}
	if s.pase != nil && s.pase.conn == conn {
		s.window.EndPASE(s.pase.sessionID, false)
		s.pase = nil
	}
}

func (s *CasterService) sendPASEMessage(conn *transport.ServerConn, msg any) error {
	data, err := commissioning.EncodePASEMessage(msg)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

func (s *CasterService) sendCommissioningError(conn *transport.ServerConn, code uint8, text string) {
	msg := &commissioning.CommissioningError{
		MsgType:   commissioning.MsgCommissioningError,
		ErrorCode: code,
		Message:   text,
	}
	if err := s.sendPASEMessage(conn, msg); err != nil {
		s.logger.Debug("failed to send commissioning error", "err", err)
	}
}
