package cover

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// noGoal marks the absence of a target position.
const noGoal = -1.0

// Controller owns the state of one cover. It is not safe for concurrent use: the owner must
// serialise calls to Setup, Tick and Control.
type Controller struct {
	name      string
	cfg       Config
	actuator  Actuator
	endstops  Endstops
	publisher Publisher
	recorder  Recorder
	logger    *zap.SugaredLogger

	position       float64
	goal           float64
	operation      Operation
	lastDirection  Operation
	target         Target
	programPending bool

	sawOpen, sawClosed bool

	lastRecompute time.Time
	startMotion   time.Time
	lastPublish   time.Time
	lastActuation time.Time
	updated       time.Time
}

// Option configures optional collaborators of a Controller.
type Option func(*Controller)

// WithEndstops attaches endstop sensors. Covers without sensors rely on timing alone.
func WithEndstops(e Endstops) Option {
	return func(c *Controller) { c.endstops = e }
}

// WithPublisher sets the sink receiving state updates.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithRecorder sets the sink receiving notable events.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller for the named cover, actuated by the given strategy.
func New(name string, cfg Config, actuator Actuator, opts ...Option) (*Controller, error) {
	if actuator == nil {
		return nil, errors.New("actuator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cover %s: %w", name, err)
	}

	c := &Controller{
		name:          name,
		cfg:           cfg.Effective(),
		actuator:      actuator,
		position:      0.5,
		goal:          noGoal,
		operation:     OperationIdle,
		lastDirection: OperationClosing,
		target:        TargetNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.publisher == nil {
		c.publisher = Publishers(nil)
	}
	return c, nil
}

// Name returns the name of the cover.
func (c *Controller) Name() string { return c.name }

// Setup initialises the position from the endstops, if any, and publishes the initial state.
// Without a sensor reading the cover is assumed to be half open.
func (c *Controller) Setup(now time.Time) {
	c.updated = now
	c.lastRecompute = now
	if c.endstops != nil {
		c.sawOpen, c.sawClosed = c.endstops.IsOpen(), c.endstops.IsClosed()
		switch {
		case c.sawOpen && c.sawClosed:
			c.logger.Warnw("both endstops active at startup, assuming mid travel")
		case c.sawOpen:
			c.position, c.lastDirection = Open, OperationOpening
		case c.sawClosed:
			c.position, c.lastDirection = Closed, OperationClosing
		}
	}
	c.logger.Infow("cover ready", "actuator", c.actuator, "position", c.position,
		"open", c.cfg.OpenDuration, "close", c.cfg.CloseDuration, "max", c.cfg.MaxDuration)
	c.publish(now)
}

// Tick advances the controller to now. It is the only place where actuations happen.
func (c *Controller) Tick(now time.Time) {
	c.updated = now
	c.recompute(now)
	if c.endstops != nil {
		c.reconcile(now, c.endstops.IsOpen(), c.endstops.IsClosed())
	}
	c.checkWatchdog(now)
	c.checkGoal(now)
	c.resolve(now)

	if c.operation != OperationIdle && now.Sub(c.lastPublish) >= c.cfg.PublishInterval {
		c.publish(now)
	}
}

// Control records a user request. The actuation it needs, if any, is issued by the next Tick.
func (c *Controller) Control(now time.Time, req Request) error {
	c.updated = now
	c.recompute(now)
	c.logger.Debugw("request received", "request", req, "position", c.position)

	switch req.kind {
	case requestStop:
		if c.operation == OperationIdle {
			c.target = TargetNone
			c.goal = noGoal
			return nil
		}
		c.target = TargetStop
		c.goal = noGoal

	case requestProgram:
		if !c.actuator.supportsProgram() {
			return fmt.Errorf("%w: program on %s", ErrUnsupported, c.actuator)
		}
		c.programPending = true

	case requestPosition:
		p := req.position
		if math.IsNaN(p) || p < Closed || p > Open {
			return fmt.Errorf("%w: %v", ErrInvalidPosition, p)
		}
		switch {
		case p > c.position:
			c.target, c.goal = TargetOpen, p
		case p < c.position:
			c.target, c.goal = TargetClose, p
		case p == Open:
			c.target, c.goal = TargetOpen, p
		case p == Closed:
			c.target, c.goal = TargetClose, p
		default:
			c.logger.Debugw("already at requested position", "position", p)
		}
	}
	return nil
}

// State returns a snapshot of the cover.
func (c *Controller) State() State {
	return State{
		Name:          c.name,
		Position:      c.position,
		Operation:     c.operation,
		Target:        c.target,
		LastDirection: c.lastDirection,
		UpdatedAt:     c.updated,
	}
}

// transition moves the state machine to op. Leaving rest or changing direction arms the
// watchdog; coming to rest clears the target when the reached state satisfies it, and drops a
// goal that no target is driving towards.
func (c *Controller) transition(now time.Time, op Operation) {
	c.recompute(now)
	if op != c.operation {
		c.logger.Debugw("operation changed", "from", c.operation, "to", op, "position", c.position)
		c.operation = op
		c.lastRecompute = now
		if op != OperationIdle {
			c.startMotion = now
			c.lastDirection = op
		}
	}
	if op == OperationIdle && (c.target == TargetNone || c.satisfied()) {
		c.target = TargetNone
		c.goal = noGoal
	}
}

// satisfied reports whether a cover at rest fulfils the current target.
func (c *Controller) satisfied() bool {
	switch c.target {
	case TargetStop:
		return true
	case TargetOpen:
		return c.position >= Open
	case TargetClose:
		return c.position <= Closed
	default:
		return false
	}
}

// checkGoal stops the cover once the estimate crosses the requested position. Endpoints need no
// actuation: the motor stops at its own limit.
func (c *Controller) checkGoal(now time.Time) {
	if c.operation == OperationIdle || c.goal == noGoal || c.target != TargetNone {
		return
	}
	reached := (c.operation == OperationOpening && c.position >= c.goal) ||
		(c.operation == OperationClosing && c.position <= c.goal)
	if !reached {
		return
	}

	c.record(now, EventTargetReached, "reached %.0f%%", c.goal*100)
	if isEndpoint(c.goal) {
		c.goal = noGoal
		c.transition(now, OperationIdle)
		c.publish(now)
		return
	}
	c.target = TargetStop
	c.goal = noGoal
}

// resolve issues at most one actuation towards the pending target.
func (c *Controller) resolve(now time.Time) {
	if c.programPending && c.debounced(now) {
		c.programPending = false
		c.lastActuation = now
		if err := c.actuator.program(c); err != nil {
			c.actuationFailed(now, err)
		}
		return
	}

	if c.target == TargetNone {
		return
	}
	want := c.target.operation()
	if want == c.operation {
		c.logger.Debugw("target operation reached", "target", c.target)
		c.target = TargetNone
		return
	}
	if !c.debounced(now) {
		return
	}

	c.recompute(now)
	c.lastActuation = now
	c.actuator.actuate(c, now, want)
}

func (c *Controller) debounced(now time.Time) bool {
	return c.lastActuation.IsZero() || now.Sub(c.lastActuation) >= c.cfg.ActivationInterval
}

func (c *Controller) actuationFailed(now time.Time, err error) {
	c.logger.Errorw("actuation failed", "err", err)
	c.record(now, EventActuationFailed, "%v", err)
}

func (c *Controller) publish(now time.Time) {
	c.lastPublish = now
	c.publisher.Publish(c.State())
}

func (c *Controller) record(now time.Time, kind EventKind, format string, args ...any) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(Event{
		Cover:     c.name,
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Position:  c.position,
		Operation: c.operation,
		At:        now,
	})
}
