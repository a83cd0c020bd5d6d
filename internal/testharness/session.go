package testharness

import (
	"log/slog"
	"net"
	"sync"

	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Session is the commissioner's side of an operational session. A serve
// loop answers incoming requests through the configured handler and
// replies to keep-alive pings; reports are emitted on demand.
type Session struct {
	conn      net.Conn
	framer    *transport.Framer
	onRequest RequestHandler
	logger    *slog.Logger

	mu       sync.Mutex
	requests []*wire.Request

	done    chan struct{}
	errOnce sync.Once
	err     error
}

// EmitReport sends one attribute report to the caster.
func (s *Session) EmitReport(rep *wire.Report) error {
	data, err := wire.EncodeReport(rep)
	if err != nil {
		return err
	}
	return s.framer.WriteFrame(data)
}

// Requests returns a snapshot of every request received so far.
func (s *Session) Requests() []*wire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*wire.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close tears down the connection. The caster observes a disconnect.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Done is closed when the serve loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the serve loop, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) serve() {
	defer close(s.done)
	for {
		data, err := s.framer.ReadFrame()
		if err != nil {
			s.fail(err)
			return
		}
		if err := s.handleFrame(data); err != nil {
			s.fail(err)
			return
		}
	}
}

func (s *Session) handleFrame(data []byte) error {
	msgType, err := wire.PeekMessageType(data)
	if err != nil {
		// Control frames from the transport layer are not request
		// envelopes; answer pings, ignore the rest.
		if msgType, seq, cerr := transport.DecodeControlMessage(data); cerr == nil {
			return s.handleControl(msgType, seq)
		}
		s.logger.Debug("dropping unrecognized frame", "err", err)
		return nil
	}

	switch msgType {
	case wire.MessageTypeRequest:
		req, err := wire.DecodeRequest(data)
		if err != nil {
			s.logger.Debug("dropping malformed request", "err", err)
			return nil
		}
		return s.handleRequest(req)
	case wire.MessageTypeControl:
		msgType, seq, err := transport.DecodeControlMessage(data)
		if err != nil {
			return nil
		}
		return s.handleControl(msgType, seq)
	default:
		s.logger.Debug("dropping unexpected frame", "type", msgType)
		return nil
	}
}

func (s *Session) handleRequest(req *wire.Request) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	s.logger.Debug("request received",
		"id", req.MessageID, "op", req.Operation, "cluster", req.ClusterID)

	resp := &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess}
	if s.onRequest != nil {
		resp = s.onRequest(req)
		if resp == nil {
			return nil
		}
		resp.MessageID = req.MessageID
	}

	data, err := wire.EncodeResponse(resp)
	if err != nil {
		return err
	}
	return s.framer.WriteFrame(data)
}

func (s *Session) handleControl(msgType wire.ControlMessageType, seq uint32) error {
	if msgType != transport.ControlPing {
		return nil
	}
	pong, err := transport.EncodePong(seq)
	if err != nil {
		return err
	}
	return s.framer.WriteFrame(pong)
}

func (s *Session) fail(err error) {
	s.errOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	})
}
