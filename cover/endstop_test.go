package cover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverctl/radio"
)

func TestReconcile_EndstopIsAuthoritative(t *testing.T) {
	sensors := &fakeEndstops{}
	c, tx, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 12 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestClose()))
	c.Tick(t0)
	c.Tick(at(2 * time.Second))
	assert.InDelta(t, 0.5-2.0/12, c.State().Position, 1e-9)

	// the cover is faster than configured
	sensors.closed = true
	c.Tick(at(3 * time.Second))
	st := c.State()
	assert.Equal(t, Closed, st.Position)
	assert.Equal(t, OperationIdle, st.Operation)
	assert.Equal(t, OperationClosing, st.LastDirection)
	assert.Equal(t, []radio.Command{radio.CommandDown}, tx.sent)
	assert.Equal(t, 1, s.count(EventEndstop))

	// a steady sensor is not reported again
	c.Tick(at(4 * time.Second))
	assert.Equal(t, 1, s.count(EventEndstop))
}

func TestReconcile_OverridesMidTravelBelief(t *testing.T) {
	sensors := &fakeEndstops{}
	c, _, _ := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	sensors.open = true
	c.Tick(at(time.Second))
	assert.Equal(t, Open, c.State().Position)
	assert.Equal(t, OperationOpening, c.State().LastDirection)
}

func TestReconcile_EndpointRequestSatisfiedBySensor(t *testing.T) {
	sensors := &fakeEndstops{open: true}
	c, r, _ := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, ActivationInterval: time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestOpen()))
	c.Tick(t0)
	c.Tick(at(2 * time.Second))
	assert.Zero(t, r.activations)
	assert.Equal(t, TargetNone, c.State().Target)
}

func TestReconcile_WrongEndstopKeepsTarget(t *testing.T) {
	sensors := &fakeEndstops{}
	c, r, _ := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, ActivationInterval: time.Second}, WithEndstops(sensors))
	c.Setup(t0)
	c.lastDirection = OperationOpening

	// the pulse closes instead of opening, and the closed endstop stops the motor
	require.NoError(t, c.Control(t0, RequestOpen()))
	c.Tick(t0)
	assert.Equal(t, OperationClosing, c.State().Operation)
	assert.Equal(t, TargetOpen, c.State().Target)

	sensors.closed = true
	c.Tick(at(5 * time.Second))
	assert.Equal(t, OperationOpening, c.State().Operation)
	assert.Equal(t, 2, r.activations)
	assert.Equal(t, TargetNone, c.State().Target)
}

func TestReconcile_BothActive(t *testing.T) {
	sensors := &fakeEndstops{}
	c, _, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	sensors.open, sensors.closed = true, true
	c.Tick(at(time.Second))
	c.Tick(at(2 * time.Second))
	assert.Equal(t, 1, s.count(EventSensorInconsistent))
	assert.Equal(t, 0.5, c.State().Position)

	// recovers once the sensors agree again
	sensors.open = false
	c.Tick(at(3 * time.Second))
	assert.Equal(t, Closed, c.State().Position)

	sensors.open, sensors.closed = true, true
	c.Tick(at(4 * time.Second))
	assert.Equal(t, 2, s.count(EventSensorInconsistent))
}

func TestReconcile_ExternalMotion(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, r, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)
	require.Equal(t, Closed, c.State().Position)

	// someone pressed the wall button
	sensors.closed = false
	c.Tick(at(time.Second))
	st := c.State()
	assert.Equal(t, OperationOpening, st.Operation)
	assert.Equal(t, OperationOpening, st.LastDirection)
	assert.Equal(t, 1, s.count(EventExternalMotion))

	c.Tick(at(6 * time.Second))
	assert.InDelta(t, 0.5, c.State().Position, 1e-9)
	assert.Equal(t, OperationOpening, c.State().Operation)

	sensors.open = true
	c.Tick(at(10 * time.Second))
	assert.Equal(t, Open, c.State().Position)
	assert.Equal(t, OperationIdle, c.State().Operation)
	assert.Zero(t, r.activations)
}

func TestReconcile_ReleaseWhileMovingIsExpected(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, _, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestOpen()))
	c.Tick(t0)
	sensors.closed = false
	c.Tick(at(time.Second))
	assert.Zero(t, s.count(EventExternalMotion))
	assert.Equal(t, OperationOpening, c.State().Operation)
}

func TestReconcile_HeldSwitchWhileLeaving(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, r, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, ActivationInterval: time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestPosition(0.3)))
	c.Tick(t0)
	require.Equal(t, OperationOpening, c.State().Operation)

	// the switch needs a moment to release
	c.Tick(at(100 * time.Millisecond))
	assert.Equal(t, OperationOpening, c.State().Operation)
	assert.Equal(t, 0.3, c.goal)
	assert.Zero(t, s.count(EventEndstop))

	sensors.closed = false
	c.Tick(at(200 * time.Millisecond))
	assert.Zero(t, s.count(EventExternalMotion))

	tickEvery(c, 300*time.Millisecond, 3500*time.Millisecond, 100*time.Millisecond)
	st := c.State()
	assert.Equal(t, OperationIdle, st.Operation)
	assert.InDelta(t, 0.3, st.Position, 0.011)
	assert.Equal(t, 2, r.activations)
}

func TestReconcile_StopWhileSwitchHeld(t *testing.T) {
	sensors := &fakeEndstops{closed: true}
	c, r, s := newToggle(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second, ActivationInterval: time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	require.NoError(t, c.Control(t0, RequestPosition(0.3)))
	c.Tick(t0)
	c.Tick(at(100 * time.Millisecond))

	require.NoError(t, c.Control(at(150*time.Millisecond), RequestStop()))
	assert.Equal(t, TargetStop, c.State().Target)

	sensors.closed = false
	c.Tick(at(200 * time.Millisecond))
	c.Tick(at(time.Second))
	st := c.State()
	assert.Equal(t, OperationIdle, st.Operation)
	assert.InDelta(t, 0.1, st.Position, 1e-9)
	assert.Equal(t, 2, r.activations)
	assert.Zero(t, s.count(EventEndstop))
	assert.Zero(t, s.count(EventExternalMotion))
}

func TestReconcile_HeldSwitchWhileApproaching(t *testing.T) {
	sensors := &fakeEndstops{}
	c, _, s := newDirectional(t, Config{OpenDuration: 10 * time.Second, CloseDuration: 10 * time.Second}, WithEndstops(sensors))
	c.Setup(t0)

	sensors.open = true
	c.Tick(at(time.Second))
	require.Equal(t, Open, c.State().Position)

	// a steady switch still stops a cover believed to run into it
	c.transition(at(2*time.Second), OperationOpening)
	c.Tick(at(3 * time.Second))
	assert.Equal(t, OperationIdle, c.State().Operation)
	assert.Equal(t, 2, s.count(EventEndstop))
}
