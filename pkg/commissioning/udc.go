package commissioning

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// DefaultUDCPort is the UDP port commissioners listen on for user directed
// commissioning requests.
const DefaultUDCPort = 5650

// UDCSendOptions configures a user directed commissioning send.
type UDCSendOptions struct {
	// Interface binds the send to a specific network interface.
	// Empty string lets the OS route the datagram.
	Interface string
}

// SendUDCDatagram sends one pre-encoded user directed commissioning
// datagram to a commissioner. The send is fire-and-forget: no response is
// read, and the socket closes as soon as the datagram is written.
func SendUDCDatagram(ctx context.Context, address string, port uint16, payload []byte, opts UDCSendOptions) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidMessage)
	}
	if port == 0 {
		port = DefaultUDCPort
	}

	dialer := net.Dialer{}
	if opts.Interface != "" {
		local, err := interfaceUDPAddr(opts.Interface)
		if err != nil {
			return err
		}
		dialer.LocalAddr = local
	}

	target := net.JoinHostPort(address, strconv.Itoa(int(port)))
	conn, err := dialer.DialContext(ctx, "udp", target)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", target, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to send UDC datagram to %s: %w", target, err)
	}
	return nil
}

// interfaceUDPAddr resolves a local UDP source address on the named
// interface.
func interfaceUDPAddr(name string) (*net.UDPAddr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown interface %q: %w", name, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses on %q: %w", name, err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}
		return &net.UDPAddr{IP: ipNet.IP}, nil
	}
	return nil, fmt.Errorf("no usable address on interface %q", name)
}
