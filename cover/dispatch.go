package cover

import (
	"fmt"
	"time"

	"coverctl/radio"
)

// Actuator turns a resolved target into a physical actuation. The set of actuators is closed:
// a cover is either driven by directional commands (*Directional) or by a single toggle relay
// (*ToggleRelay).
type Actuator interface {
	fmt.Stringer

	// actuate issues one actuation towards want and updates the controller accordingly.
	actuate(c *Controller, now time.Time, want Operation)
	// halt ends the believed motion after a watchdog timeout.
	halt(c *Controller, now time.Time)
	supportsProgram() bool
	program(c *Controller) error
}

// Directional drives covers that accept distinct open, close and stop commands, such as RF
// controlled roller shutters.
type Directional struct {
	tx radio.Transmitter
}

// NewDirectional returns an actuator sending commands through tx.
func NewDirectional(tx radio.Transmitter) *Directional {
	return &Directional{tx: tx}
}

func (d *Directional) String() string { return "directional" }

func (d *Directional) actuate(c *Controller, now time.Time, want Operation) {
	cmd := commandFor(want)
	if err := radio.Transmit(d.tx, cmd); err != nil {
		c.actuationFailed(now, fmt.Errorf("send %s: %w", cmd, err))
		return
	}
	c.logger.Infow("command sent", "command", cmd, "position", c.position)
	c.record(now, EventActuation, "sent %s", cmd)

	c.transition(now, want)
	c.target = TargetNone
	c.publish(now)
}

func (d *Directional) halt(c *Controller, now time.Time) {
	if c.operation == OperationIdle {
		return
	}
	c.recompute(now)
	c.lastActuation = now
	d.actuate(c, now, OperationIdle)
}

func (d *Directional) supportsProgram() bool { return true }

func (d *Directional) program(c *Controller) error {
	c.logger.Infow("sending program command")
	if err := radio.Transmit(d.tx, radio.CommandProg); err != nil {
		return fmt.Errorf("send %s: %w", radio.CommandProg, err)
	}
	return nil
}

func commandFor(op Operation) radio.Command {
	switch op {
	case OperationOpening:
		return radio.CommandUp
	case OperationClosing:
		return radio.CommandDown
	default:
		return radio.CommandMy
	}
}

// Relay is a single fire-and-forget actuator.
type Relay interface {
	Activate() error
}

// ToggleRelay drives covers whose only control is one button: every activation stops a moving
// motor, or starts an idle one in the direction opposite to its last run.
//
// Such a cover can only approximate partial positions: the relay carries no position, so the
// controller stops the motor by timing once the estimate crosses the goal.
type ToggleRelay struct {
	relay Relay
}

// NewToggleRelay returns an actuator pulsing r.
func NewToggleRelay(r Relay) *ToggleRelay {
	return &ToggleRelay{relay: r}
}

func (t *ToggleRelay) String() string { return "toggle" }

func (t *ToggleRelay) actuate(c *Controller, now time.Time, want Operation) {
	if err := t.relay.Activate(); err != nil {
		c.actuationFailed(now, fmt.Errorf("activate relay: %w", err))
		return
	}

	next := OperationIdle
	if c.operation == OperationIdle {
		if c.lastDirection == OperationIdle {
			c.lastDirection = OperationClosing
		}
		next = c.lastDirection.opposite()
		c.lastDirection = next
	}
	c.logger.Infow("relay activated", "from", c.operation, "to", next, "target", c.target, "position", c.position)
	c.record(now, EventActuation, "relay pulse, %s -> %s", c.operation, next)

	c.transition(now, next)
	if c.operation == want {
		c.target = TargetNone
	}
	c.publish(now)
}

// halt marks the cover at rest without pulsing: a pulse on a motor that already stopped by
// itself would start it again.
func (t *ToggleRelay) halt(c *Controller, now time.Time) {
	c.transition(now, OperationIdle)
	c.publish(now)
}

func (t *ToggleRelay) supportsProgram() bool { return false }

func (t *ToggleRelay) program(*Controller) error { return ErrUnsupported }
