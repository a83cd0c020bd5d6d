package commissioning_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/commissioning"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// mockConn implements a simple in-memory connection for testing.
type mockConn struct {
	reader *io.PipeReader
	writer *io.PipeWriter
}

func newMockConnPair() (*mockConn, *mockConn) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()

	return &mockConn{reader: r1, writer: w2},
		&mockConn{reader: r2, writer: w1}
}

func (c *mockConn) Read(p []byte) (int, error)  { return c.reader.Read(p) }
func (c *mockConn) Write(p []byte) (int, error) { return c.writer.Write(p) }
func (c *mockConn) Close() error {
	c.reader.Close()
	c.writer.Close()
	return nil
}
func (c *mockConn) LocalAddr() net.Addr                { return nil }
func (c *mockConn) RemoteAddr() net.Addr               { return nil }
func (c *mockConn) SetDeadline(t time.Time) error      { return nil }
func (c *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *mockConn) SetWriteDeadline(t time.Time) error { return nil }

// TestPASESessionSuccess verifies successful PASE handshake between client and server.
func TestPASESessionSuccess(t *testing.T) {
	// Setup
	passcode := wire.MustParsePasscode("20252024")
	clientIdentity := []byte("commissioner-001")
	serverIdentity := []byte("caster-001")

	// Caster generates verifier from its passcode when the window opens
	verifier, err := commissioning.GenerateVerifier(passcode, clientIdentity, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to generate verifier: %v", err)
	}

	// Create mock connections
	clientConn, serverConn := newMockConnPair()
	defer clientConn.Close()
	defer serverConn.Close()

	// Create sessions
	clientSession, err := commissioning.NewPASEClientSession(passcode, clientIdentity, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to create client session: %v", err)
	}

	serverSession, err := commissioning.NewPASEServerSession(verifier, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to create server session: %v", err)
	}

	// Run handshake concurrently
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var clientErr, serverErr error
	var clientKey, serverKey []byte

	wg.Add(2)

	// Client side
	go func() {
		defer wg.Done()
		clientKey, clientErr = clientSession.Handshake(ctx, clientConn)
	}()

	// Server side
	go func() {
		defer wg.Done()
		serverKey, serverErr = serverSession.Handshake(ctx, serverConn)
	}()

	wg.Wait()

	// Check results
	if clientErr != nil {
		t.Fatalf("Client handshake failed: %v", clientErr)
	}
	if serverErr != nil {
		t.Fatalf("Server handshake failed: %v", serverErr)
	}

	// Verify both sides derived the same key
	if !bytes.Equal(clientKey, serverKey) {
		t.Error("Client and server derived different session keys")
	}

	if len(clientKey) != commissioning.SharedSecretSize {
		t.Errorf("Session key wrong size: expected %d, got %d", commissioning.SharedSecretSize, len(clientKey))
	}
}

// TestPASESessionWrongPassword verifies PASE fails with wrong passcode.
func TestPASESessionWrongPassword(t *testing.T) {
	// Setup with correct code
	correctPasscode := wire.MustParsePasscode("20252024")
	wrongPasscode := wire.MustParsePasscode("73190542")
	clientIdentity := []byte("commissioner-001")
	serverIdentity := []byte("caster-001")

	// Caster has verifier for the correct passcode
	verifier, err := commissioning.GenerateVerifier(correctPasscode, clientIdentity, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to generate verifier: %v", err)
	}

	// Create mock connections
	clientConn, serverConn := newMockConnPair()
	defer clientConn.Close()
	defer serverConn.Close()

	// Client uses wrong code
	clientSession, _ := commissioning.NewPASEClientSession(wrongPasscode, clientIdentity, serverIdentity)
	serverSession, _ := commissioning.NewPASEServerSession(verifier, serverIdentity)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var clientErr, serverErr error

	wg.Add(2)

	go func() {
		defer wg.Done()
		_, clientErr = clientSession.Handshake(ctx, clientConn)
	}()

	go func() {
		defer wg.Done()
		_, serverErr = serverSession.Handshake(ctx, serverConn)
	}()

	wg.Wait()

	// At least one side should fail
	if clientErr == nil && serverErr == nil {
		t.Error("Expected handshake to fail with wrong password")
	}
}

// TestPASESessionTimeout verifies PASE times out properly.
func TestPASESessionTimeout(t *testing.T) {
	passcode := wire.MustParsePasscode("20252024")
	clientIdentity := []byte("commissioner-001")
	serverIdentity := []byte("caster-001")

	// Create connection pair but only use client side (server won't respond)
	clientConn, serverConn := newMockConnPair()
	defer clientConn.Close()
	defer serverConn.Close()

	clientSession, err := commissioning.NewPASEClientSession(passcode, clientIdentity, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to create client session: %v", err)
	}

	// Start server session but don't run handshake - just read and discard
	go func() {
		buf := make([]byte, 1024)
		for {
			_, err := serverConn.Read(buf)
			if err != nil {
				return
			}
		}
	}()

	// Very short timeout
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = clientSession.Handshake(ctx, clientConn)
	if err == nil {
		t.Error("Expected timeout error")
	}
}

// TestPASEClientIdentity verifies client identity is properly included.
func TestPASEClientIdentity(t *testing.T) {
	passcode := wire.MustParsePasscode("20252024")
	clientIdentity := []byte("commissioner-test-identity")
	serverIdentity := []byte("caster-test-identity")

	clientSession, err := commissioning.NewPASEClientSession(passcode, clientIdentity, serverIdentity)
	if err != nil {
		t.Fatalf("Failed to create client session: %v", err)
	}

	if !bytes.Equal(clientSession.ClientIdentity(), clientIdentity) {
		t.Error("Client identity not preserved")
	}
}
