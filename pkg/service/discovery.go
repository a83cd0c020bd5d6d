package service

import (
	"context"
	"fmt"

	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
)

// StartDiscovery clears the registry and browses for commissioners.
// OnSent fires once browsing has actually started; each commissioner
// found during this run is appended to the registry and reported
// through OnCommissionerFound and EventCommissionerDiscovered. The
// browse runs until StopDiscovery, the next StartDiscovery, or Close.
func (s *CasterService) StartDiscovery(opts DiscoveryOptions) {
	ok := s.submit(func() {
		if s.state == StateCommissioned || s.state == StateAwaitingCommissioning {
			s.startBrowse(opts)
			return
		}
		if s.state != StateIdle && s.state != StateDiscovering {
			err := fmt.Errorf("%w: cannot discover in state %s", ErrInvalidArgument, s.state)
			s.deliver(opts.Delivery, wrapSent(opts.OnSent, err))
			return
		}
		s.startBrowse(opts)
		s.setState(StateDiscovering)
	})
	if !ok {
		s.reject(opts.Delivery, opts.OnSent, s.lifecycleError())
	}
}

// startBrowse begins a browse run. Engine queue only.
func (s *CasterService) startBrowse(opts DiscoveryOptions) {
	if s.browseStop != nil {
		s.browseStop()
		s.browseStop = nil
	}
	s.registry.Clear()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.browser.BrowseCommissioners(ctx)
	if err != nil {
		cancel()
		s.deliver(opts.Delivery, wrapSent(opts.OnSent, fmt.Errorf("browse failed: %w", err)))
		return
	}
	s.browseStop = cancel

	go func() {
		for rec := range ch {
			rec := rec
			s.engine.Post(func() {
				s.registry.Append(rec)
				s.logger.Debug("commissioner discovered",
					"instance", rec.InstanceName, "addr", rec.Address())
				s.emit(Event{
					Type:         EventCommissionerDiscovered,
					State:        s.state,
					Commissioner: rec,
				})
				if opts.OnCommissionerFound != nil {
					s.deliver(opts.Delivery, func() { opts.OnCommissionerFound(rec) })
				}
			})
		}
	}()

	s.deliver(opts.Delivery, wrapSent(opts.OnSent, nil))
}

// StopDiscovery ends the current browse run. Discovered records stay in
// the registry until the next StartDiscovery.
func (s *CasterService) StopDiscovery() {
	s.submit(func() {
		if s.browseStop != nil {
			s.browseStop()
			s.browseStop = nil
		}
		if s.state == StateDiscovering {
			s.setState(StateIdle)
		}
	})
}

// DiscoveredCommissioner returns the commissioner at the given registry
// position, or discovery.ErrRecordNotFound when out of bounds.
func (s *CasterService) DiscoveredCommissioner(index int) (*discovery.CommissionerRecord, error) {
	return s.registry.Get(index)
}

// DiscoveredCommissioners returns a snapshot of the registry.
func (s *CasterService) DiscoveredCommissioners() []*discovery.CommissionerRecord {
	return s.registry.Snapshot()
}

// wrapSent builds the OnSent continuation, tolerating a nil callback.
func wrapSent(onSent func(error), err error) func() {
	if onSent == nil {
		return nil
	}
	return func() { onSent(err) }
}
