package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
)

func commissionerRecord(instance, device string) *discovery.CommissionerRecord {
	return &discovery.CommissionerRecord{
		InstanceName: instance,
		DeviceName:   device,
		VendorID:     0x1217,
		ProductID:    0x0001,
		DeviceType:   35,
	}
}

func TestStartDiscoveryCollectsCommissioners(t *testing.T) {
	env := newTestService(t)
	env.browser.setRecords(
		commissionerRecord("A1B2C3D4E5F60718", "Living Room TV"),
		commissionerRecord("F60718A1B2C3D4E5", "Bedroom TV"),
	)

	sent := make(chan error, 1)
	found := make(chan *discovery.CommissionerRecord, 4)
	env.service.StartDiscovery(DiscoveryOptions{
		OnSent:              func(err error) { sent <- err },
		OnCommissionerFound: func(rec *discovery.CommissionerRecord) { found <- rec },
	})
	require.NoError(t, waitErr(t, sent))
	assert.Equal(t, StateDiscovering, env.service.State())

	require.Eventually(t, func() bool {
		return len(env.service.DiscoveredCommissioners()) == 2
	}, testTimeout, 5*time.Millisecond)

	rec, err := env.service.DiscoveredCommissioner(0)
	require.NoError(t, err)
	assert.Equal(t, "Living Room TV", rec.DeviceName)

	for i := 0; i < 2; i++ {
		select {
		case <-found:
		case <-time.After(testTimeout):
			t.Fatal("timed out waiting for discovery callback")
		}
	}
}

func TestStartDiscoveryResetsRegistry(t *testing.T) {
	env := newTestService(t)
	env.browser.setRecords(commissionerRecord("0000000000000001", "Old TV"))

	sent := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent <- err }})
	require.NoError(t, waitErr(t, sent))
	require.Eventually(t, func() bool {
		return len(env.service.DiscoveredCommissioners()) == 1
	}, testTimeout, 5*time.Millisecond)

	env.browser.setRecords(
		commissionerRecord("0000000000000002", "New TV"),
		commissionerRecord("0000000000000003", "Other TV"),
	)
	sent2 := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent2 <- err }})
	require.NoError(t, waitErr(t, sent2))

	require.Eventually(t, func() bool {
		recs := env.service.DiscoveredCommissioners()
		return len(recs) == 2 && recs[0].DeviceName == "New TV"
	}, testTimeout, 5*time.Millisecond)
	assert.Equal(t, 2, env.browser.browseCount())
}

func TestStopDiscoveryKeepsRegistry(t *testing.T) {
	env := newTestService(t)
	env.browser.setRecords(commissionerRecord("0000000000000009", "Kitchen TV"))

	sent := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent <- err }})
	require.NoError(t, waitErr(t, sent))
	require.Eventually(t, func() bool {
		return len(env.service.DiscoveredCommissioners()) == 1
	}, testTimeout, 5*time.Millisecond)

	env.service.StopDiscovery()
	env.service.engine.Flush()
	assert.Equal(t, StateIdle, env.service.State())
	assert.Len(t, env.service.DiscoveredCommissioners(), 1)
}

func TestStartDiscoveryInvalidState(t *testing.T) {
	env := newTestService(t)
	env.service.engine.Post(func() { env.service.setState(StateFailed) })
	env.service.engine.Flush()

	sent := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent <- err }})
	assert.ErrorIs(t, waitErr(t, sent), ErrInvalidArgument)
	assert.Equal(t, 0, env.browser.browseCount())
}

func TestStartDiscoveryWhileCommissioned(t *testing.T) {
	env := newTestService(t)
	env.commission(t)
	env.browser.setRecords(commissionerRecord("0000000000000004", "Den TV"))

	sent := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent <- err }})
	require.NoError(t, waitErr(t, sent))

	// Browsing while commissioned does not disturb the session state.
	assert.Equal(t, StateCommissioned, env.service.State())
}

func TestStartDiscoveryAfterClose(t *testing.T) {
	env := newTestService(t)
	require.NoError(t, env.service.Close())

	sent := make(chan error, 1)
	env.service.StartDiscovery(DiscoveryOptions{OnSent: func(err error) { sent <- err }})
	assert.ErrorIs(t, waitErr(t, sent), ErrSessionClosed)
}

func TestDiscoveredCommissionerOutOfBounds(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.DiscoveredCommissioner(0)
	assert.ErrorIs(t, err, discovery.ErrRecordNotFound)
	_, err = env.service.DiscoveredCommissioner(-1)
	assert.ErrorIs(t, err, discovery.ErrRecordNotFound)
}
