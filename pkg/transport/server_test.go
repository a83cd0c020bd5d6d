package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// startTestServer starts a listener on a loopback port.
func startTestServer(t *testing.T, config ServerConfig) *Server {
	t.Helper()

	if config.Address == "" {
		config.Address = "127.0.0.1:0"
	}
	server, err := NewServer(config)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

// dialTestClient connects a commissioning-mode client to the server.
func dialTestClient(t *testing.T, server *Server, certificate tls.Certificate) *ClientConn {
	t.Helper()

	client, err := NewClient(ClientConfig{
		TLSConfig:         &TLSConfig{Certificate: certificate},
		CommissioningMode: true,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	conn, err := client.Connect(context.Background(), server.Addr().String())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerTLS13Only(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
	})

	// A TLS 1.2 client must be rejected during the handshake.
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPNProtocol},
	}

	conn, err := tls.Dial("tcp", server.Addr().String(), conf)
	if err == nil {
		conn.Close()
		t.Fatal("TLS 1.2 handshake should fail")
	}
}

func TestServerALPN(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
	})

	t.Run("Commissioning", func(t *testing.T) {
		conf := &tls.Config{
			MinVersion:         tls.VersionTLS13,
			InsecureSkipVerify: true,
			NextProtos:         []string{CommissioningALPNProtocol},
		}
		conn, err := tls.Dial("tcp", server.Addr().String(), conf)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer conn.Close()

		if got := conn.ConnectionState().NegotiatedProtocol; got != CommissioningALPNProtocol {
			t.Errorf("negotiated %q, want %q", got, CommissioningALPNProtocol)
		}
	})

	t.Run("Operational", func(t *testing.T) {
		conf := &tls.Config{
			MinVersion:         tls.VersionTLS13,
			InsecureSkipVerify: true,
			NextProtos:         []string{ALPNProtocol},
		}
		conn, err := tls.Dial("tcp", server.Addr().String(), conf)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer conn.Close()

		if got := conn.ConnectionState().NegotiatedProtocol; got != ALPNProtocol {
			t.Errorf("negotiated %q, want %q", got, ALPNProtocol)
		}
	})

	t.Run("NoALPN", func(t *testing.T) {
		conf := &tls.Config{
			MinVersion:         tls.VersionTLS13,
			InsecureSkipVerify: true,
		}
		conn, err := tls.Dial("tcp", server.Addr().String(), conf)
		if err != nil {
			// Rejected at handshake is also acceptable.
			return
		}
		defer conn.Close()

		// The server must drop the connection after verification.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 1)
		if _, err := conn.Read(buf); err == nil {
			t.Error("connection without ALPN should be closed by the server")
		}
	})
}

func TestServerEcho(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	commissioner := newTestIdentity(t, "commissioner")

	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
		OnMessage: func(conn *ServerConn, msg []byte) {
			conn.Send(msg)
		},
	})

	conn := dialTestClient(t, server, commissioner.TLSCertificate())

	msg := []byte("play something")
	if err := conn.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	echo, err := conn.Receive(5 * time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if string(echo) != string(msg) {
		t.Errorf("echo = %q, want %q", echo, msg)
	}
}

func TestServerPeerFingerprint(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	commissioner := newTestIdentity(t, "commissioner")

	var gotFingerprint atomic.Value

	server := startTestServer(t, ServerConfig{
		TLSConfig:         &TLSConfig{Certificate: caster.TLSCertificate()},
		RequireClientCert: true,
		OnConnect: func(conn *ServerConn) {
			gotFingerprint.Store(PeerFingerprint(conn.TLSState()))
		},
	})

	dialTestClient(t, server, commissioner.TLSCertificate())

	deadline := time.Now().Add(5 * time.Second)
	for gotFingerprint.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatal("OnConnect was not called")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := gotFingerprint.Load().(string); got != commissioner.Fingerprint() {
		t.Errorf("peer fingerprint = %q, want %q", got, commissioner.Fingerprint())
	}
}

func TestServerRequireClientCert(t *testing.T) {
	caster := newTestIdentity(t, "caster")

	server := startTestServer(t, ServerConfig{
		TLSConfig:         &TLSConfig{Certificate: caster.TLSCertificate()},
		RequireClientCert: true,
	})

	// Client without a certificate should be rejected.
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		NextProtos:         []string{CommissioningALPNProtocol},
	}
	conn, err := tls.Dial("tcp", server.Addr().String(), conf)
	if err != nil {
		return // rejected at handshake
	}
	defer conn.Close()

	// TLS 1.3 may surface the rejection on first read.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Error("connection without client certificate should fail")
	}
}

func TestServerConcurrentConnections(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	commissioner := newTestIdentity(t, "commissioner")

	var received atomic.Int32
	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
		OnMessage: func(conn *ServerConn, msg []byte) {
			received.Add(1)
			conn.Send(msg)
		},
	})

	const clients = 5

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			client, err := NewClient(ClientConfig{
				TLSConfig:         &TLSConfig{Certificate: commissioner.TLSCertificate()},
				CommissioningMode: true,
			})
			if err != nil {
				t.Errorf("NewClient() error = %v", err)
				return
			}
			conn, err := client.Connect(context.Background(), server.Addr().String())
			if err != nil {
				t.Errorf("Connect() error = %v", err)
				return
			}
			defer conn.Close()

			if err := conn.Send([]byte("hello")); err != nil {
				t.Errorf("Send() error = %v", err)
				return
			}
			if _, err := conn.Receive(5 * time.Second); err != nil {
				t.Errorf("Receive() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := received.Load(); got != clients {
		t.Errorf("received %d messages, want %d", got, clients)
	}
}

func TestServerStop(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	commissioner := newTestIdentity(t, "commissioner")

	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
	})

	conn := dialTestClient(t, server, commissioner.TLSCertificate())

	addr := server.Addr().String()
	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Existing connection is closed.
	if _, err := conn.Receive(2 * time.Second); err == nil {
		t.Error("Receive should fail after server stop")
	}

	// New connections are refused.
	dialer := &net.Dialer{Timeout: time.Second}
	if raw, err := dialer.Dial("tcp", addr); err == nil {
		raw.Close()
		t.Error("dial should fail after server stop")
	}
}

func TestServerAnswersPing(t *testing.T) {
	caster := newTestIdentity(t, "caster")
	commissioner := newTestIdentity(t, "commissioner")

	server := startTestServer(t, ServerConfig{
		TLSConfig: &TLSConfig{Certificate: caster.TLSCertificate()},
	})

	conn := dialTestClient(t, server, commissioner.TLSCertificate())

	if err := conn.SendPing(7); err != nil {
		t.Fatalf("SendPing() error = %v", err)
	}

	data, err := conn.Receive(5 * time.Second)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	msgType, seq, err := DecodeControlMessage(data)
	if err != nil {
		t.Fatalf("DecodeControlMessage() error = %v", err)
	}
	if msgType != wire.ControlPong {
		t.Errorf("message type = %v, want pong", msgType)
	}
	if seq != 7 {
		t.Errorf("pong sequence = %d, want 7", seq)
	}
}
