package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/cert"
	"github.com/tvcast-protocol/tvcast-go/pkg/commissioning"
	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
	"github.com/tvcast-protocol/tvcast-go/pkg/interaction"
	"github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/persistence"
	"github.com/tvcast-protocol/tvcast-go/pkg/subscription"
	"github.com/tvcast-protocol/tvcast-go/pkg/transport"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// stateFileName is the persisted caster state file under DataDir.
const stateFileName = "caster-state.json"

// sessionConn is the live session's send side. Satisfied by
// *transport.ServerConn; tests inject fakes.
type sessionConn interface {
	Send(data []byte) error
	Close() error
}

// CasterService is the casting engine: it discovers commissioners,
// requests commissioning, holds at most one live session, and runs
// commands and subscriptions over it.
//
// All engine state is mutated on one internal dispatch queue; public
// operations enqueue and return. Continuations run on the per-call
// Delivery context, or on the internal queue when Delivery is nil.
type CasterService struct {
	config CasterConfig
	logger *slog.Logger
	plog   log.Logger

	engine *dispatch.Queue

	// Set once by Start, read-only thereafter
	identity     *cert.Identity
	store        *persistence.CasterStateStore
	onboarding   *wire.OnboardingPayload
	instanceName string

	// Most recently commissioned peer, carried across saves so a
	// restart keeps the reconnect target. Engine queue after Start.
	lastPeer *persistence.CommissionedPeer

	registry   *discovery.Registry
	browser    discovery.Browser
	advertiser discovery.Advertiser

	correlator *interaction.Correlator
	subs       *subscription.Table
	window     *commissioning.Window

	// Engine-queue confined
	state        SessionState
	session      sessionConn
	fingerprint  string
	server       *transport.Server
	pase         *paseAttempt
	browseStop   func()
	windowOpts   *WindowOptions
	advertising  bool

	stateMu sync.RWMutex // guards the State() snapshot of state

	started atomic.Bool
	closed  atomic.Bool

	events   dispatch.Context
	handlers []EventHandler
	hmu      sync.RWMutex
}

// NewCasterService creates a casting engine from the given config.
// The engine does nothing until Start is called.
func NewCasterService(config CasterConfig) (*CasterService, error) {
	defaults := DefaultCasterConfig()
	if config.ListenAddress == "" {
		config.ListenAddress = defaults.ListenAddress
	}
	if config.WindowTimeout == 0 {
		config.WindowTimeout = defaults.WindowTimeout
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = defaults.Retry
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	plog := config.ProtocolLog
	if plog == nil {
		plog = log.NoopLogger{}
	}
	events := config.EventDelivery
	if events == nil {
		events = dispatch.Async{}
	}

	engine := dispatch.NewQueue()

	s := &CasterService{
		config:       config,
		logger:       logger,
		plog:         plog,
		engine:       engine,
		instanceName: discovery.NewInstanceName(),
		registry:     discovery.NewRegistry(),
		correlator:   interaction.NewCorrelator(engine),
		subs:         subscription.NewTable(),
		window:       commissioning.NewWindow(),
		state:        StateIdle,
		events:       events,
	}
	return s, nil
}

// Start loads or generates the caster identity and onboarding payload
// and starts the internal queue. It does not open a commissioning
// window or start discovery.
func (s *CasterService) Start() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := s.loadIdentity(); err != nil {
		s.started.Store(false)
		return err
	}
	if err := s.loadOnboarding(); err != nil {
		s.started.Store(false)
		return err
	}

	if s.config.Browser != nil {
		s.browser = s.config.Browser
	} else {
		browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{
			Interface: s.config.Interface,
		})
		if err != nil {
			s.started.Store(false)
			return fmt.Errorf("failed to create browser: %w", err)
		}
		s.browser = browser
	}
	if s.config.Advertiser != nil {
		s.advertiser = s.config.Advertiser
	} else {
		advertiser, err := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: s.config.Interface,
		})
		if err != nil {
			s.started.Store(false)
			return fmt.Errorf("failed to create advertiser: %w", err)
		}
		s.advertiser = advertiser
	}

	s.engine.Start()

	s.logger.Info("caster service started",
		"device", s.config.DeviceName,
		"instance", s.instanceName,
		"discriminator", s.onboarding.Discriminator)
	return nil
}

// Close shuts the service down. All outstanding requests and
// established subscriptions fail with the session-closed error in one
// cascade; no continuation fires after Close returns.
func (s *CasterService) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.started.Load() {
		return nil
	}

	s.engine.Post(func() {
		s.teardown(ErrSessionClosed, StateClosed)
	})
	// Teardown posts failure continuations back onto the queue; the
	// second flush lets those run before the queue stops.
	s.engine.Flush()
	s.engine.Flush()
	s.engine.Stop()

	if s.browser != nil {
		s.browser.Stop()
	}
	if s.advertiser != nil {
		s.advertiser.StopAll()
	}

	s.logger.Info("caster service closed")
	return nil
}

// State returns the current session state.
func (s *CasterService) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// OnboardingPayload returns the caster's onboarding payload, or nil
// before Start.
func (s *CasterService) OnboardingPayload() *wire.OnboardingPayload {
	return s.onboarding
}

// Fingerprint returns the commissioned peer's certificate fingerprint,
// or empty while no session is live.
func (s *CasterService) Fingerprint() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.fingerprint
}

// OnEvent registers an event handler. Handlers run on the configured
// event delivery context.
func (s *CasterService) OnEvent(handler EventHandler) {
	if handler == nil {
		return
	}
	s.hmu.Lock()
	s.handlers = append(s.handlers, handler)
	s.hmu.Unlock()
}

// loadIdentity loads or generates the caster's TLS identity.
func (s *CasterService) loadIdentity() error {
	if s.config.DataDir == "" {
		id, err := cert.GenerateIdentity(s.config.DeviceName)
		if err != nil {
			return fmt.Errorf("failed to generate identity: %w", err)
		}
		s.identity = id
		return nil
	}
	id, err := cert.LoadOrGenerateIdentity(s.config.DataDir, s.config.DeviceName)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	s.identity = id
	return nil
}

// loadOnboarding restores the persisted onboarding payload or builds a
// fresh one. Config-supplied discriminator and passcode win over both.
func (s *CasterService) loadOnboarding() error {
	var persisted *persistence.OnboardingState
	if s.config.DataDir != "" {
		s.store = persistence.NewCasterStateStore(filepath.Join(s.config.DataDir, stateFileName))
		state, err := s.store.Load()
		if err != nil {
			return fmt.Errorf("failed to load caster state: %w", err)
		}
		if state != nil {
			persisted = state.Onboarding
			s.lastPeer = state.Peer
		}
	}

	payload := &wire.OnboardingPayload{
		Version:   1,
		VendorID:  s.config.VendorID,
		ProductID: s.config.ProductID,
	}

	switch {
	case s.config.Discriminator != 0:
		payload.Discriminator = s.config.Discriminator
	case persisted != nil:
		payload.Discriminator = persisted.Discriminator
	default:
		d, err := wire.GenerateDiscriminator()
		if err != nil {
			return err
		}
		payload.Discriminator = d
	}

	switch {
	case s.config.Passcode != 0:
		payload.Passcode = s.config.Passcode
	case persisted != nil:
		payload.Passcode = wire.Passcode(persisted.Passcode)
	default:
		pc, err := wire.GeneratePasscode()
		if err != nil {
			return err
		}
		payload.Passcode = pc
	}

	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.onboarding = payload

	if s.store != nil {
		if err := s.persistState(nil); err != nil {
			return err
		}
	}
	return nil
}

// persistState writes the onboarding identity and the last
// commissioned peer to the state file. A nil peer keeps the one
// already on record.
func (s *CasterService) persistState(peer *persistence.CommissionedPeer) error {
	if peer != nil {
		s.lastPeer = peer
	}
	if s.store == nil {
		return nil
	}
	state := &persistence.CasterState{
		Onboarding: persistence.NewOnboardingState(s.onboarding),
		Peer:       s.lastPeer,
	}
	if err := s.store.Save(state); err != nil {
		return fmt.Errorf("failed to persist caster state: %w", err)
	}
	return nil
}

// setState records a session state transition. Engine queue only.
func (s *CasterService) setState(next SessionState) {
	s.stateMu.Lock()
	prev := s.state
	s.state = next
	s.stateMu.Unlock()

	if prev == next {
		return
	}
	s.logger.Debug("session state changed", "from", prev.String(), "to", next.String())
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		LocalRole: log.RoleCaster,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: prev.String(),
			NewState: next.String(),
		},
	})
	s.emit(Event{Type: EventStateChanged, State: next})
}

// emit delivers an event to every registered handler.
func (s *CasterService) emit(evt Event) {
	s.hmu.RLock()
	handlers := make([]EventHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.hmu.RUnlock()

	for _, h := range handlers {
		h := h
		s.events.Post(func() { h(evt) })
	}
}

// deliver posts a continuation to the caller's delivery context, or to
// the engine queue when the caller did not specify one.
func (s *CasterService) deliver(d dispatch.Context, fn func()) {
	if fn == nil {
		return
	}
	if d == nil {
		d = s.engine
	}
	d.Post(fn)
}

// submit enqueues a task on the engine queue. It returns false once the
// service is closed or before it is started; the caller then fails the
// operation through OnSent on its own.
func (s *CasterService) submit(task func()) bool {
	if s.closed.Load() || !s.started.Load() {
		return false
	}
	s.engine.Post(task)
	return true
}

// reject delivers an OnSent failure for an operation that never reached
// the engine queue. With no delivery context the continuation runs
// inline: the engine queue may already be stopped.
func (s *CasterService) reject(d dispatch.Context, onSent func(error), err error) {
	if onSent == nil {
		return
	}
	if d == nil {
		onSent(err)
		return
	}
	d.Post(func() { onSent(err) })
}

// lifecycleError returns the error public operations fail with when the
// service cannot accept work.
func (s *CasterService) lifecycleError() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return ErrNotStarted
}

// sendFrame transmits one frame over the live session, retrying per the
// configured policy. Engine queue only.
func (s *CasterService) sendFrame(data []byte) error {
	conn := s.session
	if conn == nil {
		return ErrNotConnected
	}
	return s.config.Retry.Do(context.Background(), func() error {
		return conn.Send(data)
	})
}

// teardown fails every outstanding request and established subscription,
// closes the live session and listener, and moves to the terminal
// state. Engine queue only; the cascade is atomic with respect to new
// submissions.
func (s *CasterService) teardown(cause error, terminal SessionState) {
	s.correlator.FailAll(cause)
	s.subs.FailAll(cause)

	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	s.pase = nil
	s.closeWindow(cause)
	if s.browseStop != nil {
		s.browseStop()
		s.browseStop = nil
	}

	s.stateMu.Lock()
	s.fingerprint = ""
	s.stateMu.Unlock()

	s.setState(terminal)
}

// listenPort returns the commissioning window port from the configured
// listen address.
func (s *CasterService) listenPort() uint16 {
	_, portStr, err := net.SplitHostPort(s.config.ListenAddress)
	if err != nil {
		return discovery.DefaultPort
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return discovery.DefaultPort
	}
	return uint16(port)
}
