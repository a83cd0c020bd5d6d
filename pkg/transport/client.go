package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

var (
	// ErrConnectionClosed indicates use of a closed connection.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrKeepAliveTimeout indicates the peer stopped answering pings.
	ErrKeepAliveTimeout = errors.New("keep-alive timed out")
)

// ClientConfig configures outbound casting connections.
type ClientConfig struct {
	// TLSConfig contains TLS settings. Operational dials pin the
	// peer by fingerprint through it.
	TLSConfig *TLSConfig

	// CommissioningMode skips server certificate verification; the
	// channel is authenticated by the passcode proof instead.
	CommissioningMode bool

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout is the connection timeout (default: 30s).
	ConnectTimeout time.Duration

	// KeepAlive tunes the ping schedule for managed connections.
	KeepAlive KeepAliveConfig

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// Client dials casting peers over TLS.
type Client struct {
	config  ClientConfig
	tlsConf *tls.Config
}

// NewClient creates a new client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}

	var tlsConf *tls.Config
	switch {
	case config.CommissioningMode:
		var certificate tls.Certificate
		if config.TLSConfig != nil {
			certificate = config.TLSConfig.Certificate
		}
		tlsConf = NewCommissioningTLSConfig(certificate)
	case config.TLSConfig != nil:
		var err error
		tlsConf, err = NewClientTLSConfig(config.TLSConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	default:
		return nil, fmt.Errorf("TLSConfig is required when not in commissioning mode")
	}

	return &Client{config: config, tlsConf: tlsConf}, nil
}

// Connect dials address, runs the TLS handshake, and verifies the
// negotiated version and ALPN protocol.
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	tlsConn := tls.Client(raw, c.tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}

	state := tlsConn.ConnectionState()
	if err := VerifyConnection(state); err != nil {
		tlsConn.Close()
		return nil, fmt.Errorf("connection verification failed: %w", err)
	}

	framer := NewFramerWithMaxSize(tlsConn, c.config.MaxMessageSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, uuid.New().String())
	}

	return &ClientConn{
		conn:     tlsConn,
		framer:   framer,
		tlsState: state,
		client:   c,
		closeCh:  make(chan struct{}),
	}, nil
}

// ConnHandler receives traffic on a managed connection.
type ConnHandler struct {
	// OnMessage is called for each non-control frame.
	OnMessage func(data []byte)

	// OnClosed is called exactly once when the connection ends,
	// with the error that ended it.
	OnClosed func(err error)
}

// ClientConn is an established connection to a casting peer.
//
// It can be driven two ways. Synchronous callers pair Send with
// Receive. Run switches the connection to managed mode: a read pump
// dispatches frames to the handler, control messages are answered in
// place, and a heartbeat watches session liveness. The two modes do
// not mix.
type ClientConn struct {
	conn     *tls.Conn
	framer   *Framer
	tlsState tls.ConnectionState
	client   *Client
	closeCh  chan struct{}

	hb *heartbeat

	closeOnce sync.Once
	runOnce   sync.Once
	readMu    sync.Mutex

	failMu  sync.Mutex
	failure error
}

// TLSState returns the TLS connection state.
func (c *ClientConn) TLSState() tls.ConnectionState {
	return c.tlsState
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send sends a message to the peer.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive reads the next frame, waiting at most timeout. Zero means
// no deadline. Not for use after Run.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	return c.framer.ReadFrame()
}

// Run switches the connection to managed mode. It starts the read
// pump and the heartbeat and returns immediately; traffic is
// delivered through h until the connection ends.
func (c *ClientConn) Run(h ConnHandler) {
	c.runOnce.Do(func() {
		c.hb = newHeartbeat(c.client.config.KeepAlive, c.SendPing, func() {
			c.fail(ErrKeepAliveTimeout)
			c.Close()
		})
		go c.hb.run()
		go c.readPump(h)
	})
}

func (c *ClientConn) readPump(h ConnHandler) {
	defer c.hb.stop()

	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			c.fail(err)
			c.Close()
			if h.OnClosed != nil {
				h.OnClosed(c.closeReason())
			}
			return
		}

		if msg, ok := controlFrame(data); ok {
			c.handleControl(msg)
			continue
		}
		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	}
}

func (c *ClientConn) handleControl(msg *wire.ControlMessage) {
	switch msg.Type {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			c.Send(pong)
		}
	case wire.ControlPong:
		c.hb.pong(msg.Sequence)
	case wire.ControlClose:
		if ack, err := EncodeClose(); err == nil {
			c.Send(ack)
		}
		c.fail(ErrConnectionClosed)
		c.Close()
	}
}

// fail records the first cause of connection failure. Later read
// errors after a deliberate close lose to the recorded cause.
func (c *ClientConn) fail(err error) {
	c.failMu.Lock()
	if c.failure == nil {
		c.failure = err
	}
	c.failMu.Unlock()
}

func (c *ClientConn) closeReason() error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	if c.failure != nil {
		return c.failure
	}
	return ErrConnectionClosed
}

// Close closes the connection. In managed mode the handler's OnClosed
// fires from the read pump once the underlying read unblocks.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.fail(ErrConnectionClosed)
		close(c.closeCh)
		if c.hb != nil {
			c.hb.stop()
		}
		err = c.conn.Close()
	})
	return err
}

// SendPing sends a ping control message.
func (c *ClientConn) SendPing(seq uint32) error {
	msg, err := EncodePing(seq)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendClose sends a close control message.
func (c *ClientConn) SendClose() error {
	msg, err := EncodeClose()
	if err != nil {
		return err
	}
	return c.Send(msg)
}
