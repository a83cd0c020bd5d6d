package transport

import (
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig tunes the ping schedule on an operational session.
type KeepAliveConfig struct {
	// PingInterval is the time between pings.
	PingInterval time.Duration

	// PongTimeout is how long a ping may go unanswered before it
	// counts as missed.
	PongTimeout time.Duration

	// MaxMissedPongs is how many consecutive misses declare the
	// peer dead.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs == 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// DetectionDelay returns the worst-case time to notice a dead peer:
// MaxMissedPongs full ping intervals plus the final pong timeout.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// heartbeat drives client-initiated liveness pings on a session. One
// ping is in flight at a time; each runs against its own pong
// deadline, and MaxMissedPongs consecutive deadline hits fire onDead.
type heartbeat struct {
	cfg    KeepAliveConfig
	send   func(seq uint32) error
	onDead func()

	pongs chan uint32
	done  chan struct{}
	once  sync.Once
}

func newHeartbeat(cfg KeepAliveConfig, send func(seq uint32) error, onDead func()) *heartbeat {
	return &heartbeat{
		cfg:    cfg.withDefaults(),
		send:   send,
		onDead: onDead,
		pongs:  make(chan uint32, 1),
		done:   make(chan struct{}),
	}
}

// run blocks until stop is called or the peer is declared dead.
// Call it on its own goroutine.
func (h *heartbeat) run() {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(h.cfg.PongTimeout)
	if !deadline.Stop() {
		<-deadline.C
	}
	defer deadline.Stop()

	var (
		seq      uint32
		pending  uint32
		inFlight bool
		missed   int
	)

	ping := func() {
		seq++
		pending = seq
		inFlight = true
		deadline.Reset(h.cfg.PongTimeout)
		// A failed send is handled as a missed pong; the read side
		// surfaces the underlying error.
		_ = h.send(seq)
	}
	ping()

	for {
		select {
		case <-h.done:
			return

		case got := <-h.pongs:
			// Pongs for stale sequences can arrive after their
			// deadline already counted them as missed.
			if inFlight && got == pending {
				inFlight = false
				missed = 0
				if !deadline.Stop() {
					select {
					case <-deadline.C:
					default:
					}
				}
			}

		case <-deadline.C:
			inFlight = false
			missed++
			if missed >= h.cfg.MaxMissedPongs {
				h.onDead()
				return
			}

		case <-ticker.C:
			if inFlight {
				continue
			}
			ping()
		}
	}
}

func (h *heartbeat) stop() {
	h.once.Do(func() { close(h.done) })
}

// pong hands a received pong sequence to the schedule loop.
func (h *heartbeat) pong(seq uint32) {
	select {
	case h.pongs <- seq:
	default:
	}
}
