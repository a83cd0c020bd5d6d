package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// ServerConfig configures a casting listener.
type ServerConfig struct {
	// TLSConfig contains TLS settings.
	TLSConfig *TLSConfig

	// Address to listen on (e.g., ":8443" or "127.0.0.1:8443").
	Address string

	// RequireClientCert requires clients to present a certificate.
	// Chains are never verified; this only guarantees a peer
	// fingerprint exists.
	RequireClientCert bool

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called when a message is received.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when an error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server is the caster's TLS listener: commissioners connect in during
// an open window.
type Server struct {
	config   ServerConfig
	tlsConf  *tls.Config
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.Mutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a new listener.
func NewServer(config ServerConfig) (*Server, error) {
	if config.TLSConfig == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	tlsConf, err := NewServerTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}
	if config.RequireClientCert {
		tlsConf.ClientAuth = tls.RequireAnyClientCert
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
		conns:   make(map[*ServerConn]struct{}),
	}, nil
}

// Start starts listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.serve()
	return nil
}

// Stop closes the listener and every active connection, then waits for
// the connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) serve() {
	defer s.wg.Done()

	for s.running.Load() {
		raw, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.reportError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			conn, err := s.admit(raw)
			if err != nil {
				raw.Close()
				s.reportError(nil, err)
				return
			}
			s.runConn(conn)
		}()
	}
}

// admit runs the TLS handshake on a freshly accepted connection and
// checks it against the listener's policy.
func (s *Server) admit(raw net.Conn) (*ServerConn, error) {
	tlsConn := tls.Server(raw, s.tlsConf)
	if err := tlsConn.HandshakeContext(s.ctx); err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}

	state := tlsConn.ConnectionState()
	if err := VerifyConnection(state); err != nil {
		tlsConn.Close()
		return nil, err
	}
	if s.config.RequireClientCert && len(state.PeerCertificates) == 0 {
		tlsConn.Close()
		return nil, fmt.Errorf("client certificate required but not provided")
	}

	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(tlsConn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID)
	}

	return &ServerConn{
		conn:       tlsConn,
		framer:     framer,
		tlsState:   state,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: raw.RemoteAddr(),
		connID:     connID,
	}, nil
}

// runConn owns an admitted connection for its whole life: register,
// notify, pump frames, unregister.
func (s *Server) runConn(conn *ServerConn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	s.logConnState(conn, "", "CONNECTED")
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	conn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	s.logConnState(conn, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

func (s *Server) reportError(conn *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}

func (s *Server) logConnState(conn *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   conn.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is one commissioner's connection to the listener.
type ServerConn struct {
	conn       *tls.Conn
	framer     *Framer
	tlsState   tls.ConnectionState
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// RemoteAddr returns the remote address of the peer.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// TLSState returns the TLS connection state.
func (c *ServerConn) TLSState() tls.ConnectionState {
	return c.tlsState
}

// Send sends a message to the peer.
func (c *ServerConn) Send(data []byte) error {
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.server.ctx.Done():
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			if c.server.running.Load() {
				select {
				case <-c.closeCh:
					// Deliberate close, nothing to report.
				default:
					c.server.reportError(c, err)
				}
			}
			return
		}

		if msg, ok := controlFrame(data); ok {
			c.handleControl(msg)
			continue
		}
		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

// handleControl answers control traffic in place. The listener side
// never initiates pings; it only answers the commissioner's.
func (c *ServerConn) handleControl(msg *wire.ControlMessage) {
	c.logControl(msg.Type, log.DirectionIn)

	switch msg.Type {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			c.Send(pong)
			c.logControl(wire.ControlPong, log.DirectionOut)
		}
	case wire.ControlPong:
		// Unsolicited; drop.
	case wire.ControlClose:
		if ack, err := EncodeClose(); err == nil {
			c.Send(ack)
			c.logControl(wire.ControlClose, log.DirectionOut)
		}
		c.Close()
	}
}

func (c *ServerConn) logControl(msgType wire.ControlMessageType, direction log.Direction) {
	if c.server.config.Logger == nil {
		return
	}

	var logType log.ControlMsgType
	switch msgType {
	case wire.ControlPing:
		logType = log.ControlMsgPing
	case wire.ControlPong:
		logType = log.ControlMsgPong
	case wire.ControlClose:
		logType = log.ControlMsgClose
	default:
		return
	}

	c.server.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   c.remoteAddr.String(),
		ControlMsg: &log.ControlMsgEvent{
			Type: logType,
		},
	})
}
