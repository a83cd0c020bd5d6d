package transport

import (
	"sync"
	"testing"
	"time"
)

func fastKeepAlive() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   20 * time.Millisecond,
		PongTimeout:    10 * time.Millisecond,
		MaxMissedPongs: 2,
	}
}

func TestKeepAliveConfigDefaults(t *testing.T) {
	cfg := KeepAliveConfig{}.withDefaults()
	if cfg.PingInterval != DefaultPingInterval {
		t.Errorf("PingInterval = %v, want %v", cfg.PingInterval, DefaultPingInterval)
	}
	if cfg.PongTimeout != DefaultPongTimeout {
		t.Errorf("PongTimeout = %v, want %v", cfg.PongTimeout, DefaultPongTimeout)
	}
	if cfg.MaxMissedPongs != DefaultMaxMissedPongs {
		t.Errorf("MaxMissedPongs = %d, want %d", cfg.MaxMissedPongs, DefaultMaxMissedPongs)
	}
}

func TestKeepAliveDetectionDelay(t *testing.T) {
	got := DefaultKeepAliveConfig().DetectionDelay()
	if got != 95*time.Second {
		t.Errorf("DetectionDelay() = %v, want 95s", got)
	}
}

func TestHeartbeatAnsweredPingsStayAlive(t *testing.T) {
	var (
		mu   sync.Mutex
		seqs []uint32
	)
	dead := make(chan struct{}, 1)

	var hb *heartbeat
	hb = newHeartbeat(fastKeepAlive(),
		func(seq uint32) error {
			mu.Lock()
			seqs = append(seqs, seq)
			mu.Unlock()
			// Answer every ping like a live peer.
			go hb.pong(seq)
			return nil
		},
		func() { dead <- struct{}{} },
	)
	go hb.run()
	defer hb.stop()

	select {
	case <-dead:
		t.Fatal("live peer declared dead")
	case <-time.After(150 * time.Millisecond):
	}

	mu.Lock()
	n := len(seqs)
	mu.Unlock()
	if n < 3 {
		t.Errorf("sent %d pings in 150ms, want at least 3", n)
	}
	mu.Lock()
	for i, seq := range seqs {
		if seq != uint32(i+1) {
			t.Errorf("seqs[%d] = %d, want %d", i, seq, i+1)
			break
		}
	}
	mu.Unlock()
}

func TestHeartbeatDeclaresSilentPeerDead(t *testing.T) {
	cfg := fastKeepAlive()
	dead := make(chan struct{}, 1)

	hb := newHeartbeat(cfg,
		func(seq uint32) error { return nil },
		func() { dead <- struct{}{} },
	)
	go hb.run()
	defer hb.stop()

	select {
	case <-dead:
	case <-time.After(cfg.DetectionDelay() + 500*time.Millisecond):
		t.Fatal("silent peer never declared dead")
	}
}

func TestHeartbeatIgnoresStalePongs(t *testing.T) {
	cfg := fastKeepAlive()
	dead := make(chan struct{}, 1)

	var hb *heartbeat
	hb = newHeartbeat(cfg,
		func(seq uint32) error {
			// Answer with a sequence that never matches.
			go hb.pong(seq + 100)
			return nil
		},
		func() { dead <- struct{}{} },
	)
	go hb.run()
	defer hb.stop()

	select {
	case <-dead:
	case <-time.After(cfg.DetectionDelay() + 500*time.Millisecond):
		t.Fatal("mismatched pongs kept the peer alive")
	}
}

func TestHeartbeatStopEndsLoop(t *testing.T) {
	dead := make(chan struct{}, 1)
	done := make(chan struct{})

	hb := newHeartbeat(fastKeepAlive(),
		func(seq uint32) error { return nil },
		func() { dead <- struct{}{} },
	)
	go func() {
		hb.run()
		close(done)
	}()

	hb.stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after stop")
	}
	select {
	case <-dead:
		t.Error("stopped heartbeat declared the peer dead")
	default:
	}
}
