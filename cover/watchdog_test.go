package cover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverctl/radio"
)

func TestWatchdog_StopDirectional(t *testing.T) {
	c, tx, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second})
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestOpen()))
	c.Tick(t0)

	// no tick for longer than any motion can take
	c.Tick(at(21 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))
	assert.Equal(t, []radio.Command{radio.CommandUp, radio.CommandMy}, tx.sent)
	assert.Equal(t, OperationIdle, c.State().Operation)
	assert.Equal(t, TargetNone, c.State().Target)
}

func TestWatchdog_StopToggleDoesNotPulse(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, r, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	sensors.closed = false
	c.Tick(t0)
	require.Equal(t, OperationOpening, c.State().Operation)

	// stopped by hand half way, the open endstop never triggers
	c.Tick(at(21 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))
	assert.Equal(t, OperationIdle, c.State().Operation)
	assert.Equal(t, Open, c.State().Position)
	assert.Zero(t, r.activations)

	c.Tick(at(60 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))
}

func TestWatchdog_Rearm(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, r, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, Watchdog: WatchdogRearm}, WithEndstops(sensors))
	c.Setup(t0)

	sensors.closed = false
	c.Tick(t0)

	c.Tick(at(21 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))
	assert.Equal(t, OperationOpening, c.State().Operation)

	c.Tick(at(30 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))

	c.Tick(at(42 * time.Second))
	assert.Equal(t, 2, s.count(EventWatchdog))
	assert.Zero(t, r.activations)
}

func TestWatchdog_Boundary(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, _, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)
	sensors.closed = false
	c.Tick(t0)

	c.Tick(at(20 * time.Second))
	assert.Zero(t, s.count(EventWatchdog))
	c.Tick(at(20*time.Second + time.Millisecond))
	assert.Equal(t, 1, s.count(EventWatchdog))
}

func TestWatchdog_InertWhenIdle(t *testing.T) {
	c, tx, s := newDirectional(t, Config{OpenDuration: time.Second, CloseDuration: time.Second})
	c.Setup(t0)

	c.Tick(at(time.Hour))
	assert.Zero(t, s.count(EventWatchdog))
	assert.Empty(t, tx.sent)
}

func TestWatchdog_ExplicitMaxDuration(t *testing.T) {
	c, _, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, MaxDuration: 3 * time.Second})
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestPosition(0.9)))
	c.Tick(t0)
	c.Tick(at(4 * time.Second))
	assert.Equal(t, 1, s.count(EventWatchdog))
	assert.Equal(t, OperationIdle, c.State().Operation)
	assert.Zero(t, s.count(EventTargetReached))
}
