package service

import (
	"fmt"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/cluster"
	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
	"github.com/tvcast-protocol/tvcast-go/pkg/subscription"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Invoke sends a cluster command over the live session. Outside the
// Commissioned state the call fails fast through OnSent with
// ErrNotConnected and no outcome continuation fires; no network traffic
// is generated. A matching response resolves exactly one of
// OnSuccess/OnFailure; an unanswered request fails with the request
// timeout.
func (s *CasterService) Invoke(cmd cluster.Command, params any, opts InvokeOptions) {
	ok := s.submit(func() {
		if s.state != StateCommissioned {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, ErrNotConnected))
			return
		}

		complete := func(resp *wire.Response, err error) {
			if err != nil {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, err))
				return
			}
			if resp.Status.IsError() {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, wire.NewStatusError(resp.Status, resp.Payload)))
				return
			}
			if opts.OnSuccess != nil {
				payload := resp.Payload
				s.deliver(opts.Delivery, func() { opts.OnSuccess(payload) })
			}
		}

		id := s.correlator.Track(wire.OpInvoke, s.requestTimeout(opts.Timeout), complete)
		req := &wire.Request{
			MessageID:  id,
			Operation:  wire.OpInvoke,
			EndpointID: opts.EndpointID,
			ClusterID:  cmd.Cluster,
			Payload:    cmd.InvokePayload(params),
		}
		s.transmit(req, id, opts.Delivery, opts.OnSent)
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// Subscribe asks the commissionee to report changes of one attribute.
// Interval misordering fails synchronously through OnSent with
// ErrInvalidArgument and creates no record. On acknowledgement
// OnEstablished fires exactly once, then each report delivers the value
// decoded by the attribute's codec through OnReport. A report that
// fails to decode surfaces through OnFailure and leaves the
// subscription established.
func (s *CasterService) Subscribe(attr cluster.Attribute, minInterval, maxInterval uint16, opts SubscribeOptions) {
	ok := s.submit(func() {
		if s.state != StateCommissioned {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, ErrNotConnected))
			return
		}

		rec, err := subscription.NewRecord(opts.EndpointID, attr.Cluster, attr.ID,
			minInterval, maxInterval, subscription.Handlers{
				OnEstablished: func(id uint32) {
					if opts.OnEstablished != nil {
						s.deliver(opts.Delivery, func() { opts.OnEstablished(id) })
					}
				},
				OnReport: func(value any) {
					if opts.OnReport != nil {
						s.deliver(opts.Delivery, func() { opts.OnReport(value) })
					}
				},
				OnFailure: func(err error) {
					s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, err))
				},
			})
		if err != nil {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, fmt.Errorf("%w: %w", ErrInvalidArgument, err)))
			return
		}
		rec.Decode = attr.DecodeValue

		complete := func(resp *wire.Response, err error) {
			if err != nil {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, err))
				return
			}
			if resp.Status.IsError() {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, wire.NewStatusError(resp.Status, resp.Payload)))
				return
			}
			ack := wire.ExtractSubscribeResponsePayload(resp.Payload)
			if ack == nil || ack.SubscriptionID == 0 {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure,
					fmt.Errorf("%w: subscribe response carries no subscription id", wire.ErrDecode)))
				return
			}
			if err := s.subs.Establish(rec, ack.SubscriptionID); err != nil {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, err))
				return
			}
			if len(ack.CurrentValues) > 0 {
				// Priming report: deliver the current values through
				// the same path as every later report.
				s.subs.HandleReport(&wire.Report{
					SubscriptionID: ack.SubscriptionID,
					EndpointID:     rec.EndpointID,
					ClusterID:      rec.ClusterID,
					Attributes:     ack.CurrentValues,
				})
			}
		}

		id := s.correlator.Track(wire.OpSubscribe, s.requestTimeout(opts.Timeout), complete)
		req := &wire.Request{
			MessageID:  id,
			Operation:  wire.OpSubscribe,
			EndpointID: opts.EndpointID,
			ClusterID:  attr.Cluster,
			Payload:    rec.SubscribePayload(),
		}
		s.transmit(req, id, opts.Delivery, opts.OnSent)
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// Unsubscribe terminates one established subscription. No reports for
// it are delivered after the commissionee confirms.
func (s *CasterService) Unsubscribe(subscriptionID uint32, opts UnsubscribeOptions) {
	ok := s.submit(func() {
		if s.state != StateCommissioned {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, ErrNotConnected))
			return
		}
		rec, found := s.subs.Get(subscriptionID)
		if !found {
			s.deliver(opts.Delivery, wrapSent(opts.OnSent,
				fmt.Errorf("%w: %w", ErrInvalidArgument, subscription.ErrSubscriptionNotFound)))
			return
		}

		complete := func(resp *wire.Response, err error) {
			if err != nil {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, err))
				return
			}
			if resp.Status.IsError() {
				s.deliver(opts.Delivery, wrapFailure(opts.OnFailure, wire.NewStatusError(resp.Status, resp.Payload)))
				return
			}
			s.subs.Terminate(subscriptionID)
			if opts.OnSuccess != nil {
				s.deliver(opts.Delivery, opts.OnSuccess)
			}
		}

		id := s.correlator.Track(wire.OpUnsubscribe, s.requestTimeout(opts.Timeout), complete)
		req := &wire.Request{
			MessageID:  id,
			Operation:  wire.OpUnsubscribe,
			EndpointID: rec.EndpointID,
			ClusterID:  rec.ClusterID,
			Payload:    &wire.UnsubscribePayload{SubscriptionID: subscriptionID},
		}
		s.transmit(req, id, opts.Delivery, opts.OnSent)
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// transmit encodes and sends one tracked request. A send failure
// removes the pending entry and surfaces through OnSent; the outcome
// continuations never fire for it. Engine queue only.
func (s *CasterService) transmit(req *wire.Request, id uint32, delivery dispatch.Context, onSent func(error)) {
	data, err := wire.EncodeRequest(req)
	if err != nil {
		s.correlator.Remove(id)
		s.deliver(delivery, wrapSent(onSent, fmt.Errorf("%w: %v", ErrInvalidArgument, err)))
		return
	}
	if err := s.sendFrame(data); err != nil {
		s.correlator.Remove(id)
		s.logger.Debug("request send failed", "op", req.Operation.String(), "id", id, "err", err)
		s.deliver(delivery, wrapSent(onSent, fmt.Errorf("%w: %v", ErrSendFailure, err)))
		return
	}
	s.logger.Debug("request sent", "op", req.Operation.String(), "id", id,
		"endpoint", req.EndpointID, "cluster", uint16(req.ClusterID))
	s.deliver(delivery, wrapSent(onSent, nil))
}

// requestTimeout resolves the effective timeout for one request.
func (s *CasterService) requestTimeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return s.config.RequestTimeout
}

// handleSessionMessage routes one frame from the live session to the
// correlator or the subscription table. A frame that fits neither is
// logged and dropped; nothing on the session is fatal short of losing
// the connection. Engine queue only.
func (s *CasterService) handleSessionMessage(data []byte) {
	msgType, err := wire.PeekMessageType(data)
	if err != nil {
		s.logger.Debug("undecodable session frame", "err", err)
		return
	}

	switch msgType {
	case wire.MessageTypeResponse:
		resp, err := wire.DecodeResponse(data)
		if err != nil {
			s.logger.Debug("bad response frame", "err", err)
			return
		}
		if err := s.correlator.HandleResponse(resp); err != nil {
			s.logger.Debug("unmatched response", "id", resp.MessageID, "err", err)
		}
	case wire.MessageTypeReport:
		rep, err := wire.DecodeReport(data)
		if err != nil {
			s.logger.Debug("bad report frame", "err", err)
			return
		}
		if err := s.subs.HandleReport(rep); err != nil {
			s.logger.Debug("report for unknown subscription", "id", rep.SubscriptionID)
		}
	default:
		s.logger.Debug("unexpected session frame", "type", int(msgType))
	}
}

// wrapFailure builds an OnFailure continuation, tolerating a nil
// callback.
func wrapFailure(onFailure func(error), err error) func() {
	if onFailure == nil {
		return nil
	}
	return func() { onFailure(err) }
}
