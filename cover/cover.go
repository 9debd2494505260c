// Package cover estimates the position of motorized covers (garage doors, roller shutters) that
// report no position of their own, and decides which physical actuation moves them towards a
// requested target.
//
// Position is integrated from elapsed time and the believed direction of travel, corrected by
// endstop sensors when a cover has them. A Controller is driven by two entry points: Tick, called
// periodically by the owner, and Control, which only records what the user asked for. Actuation
// happens exclusively inside Tick.
package cover

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// Closed is the position of a fully closed cover.
	Closed = 0.0
	// Open is the position of a fully open cover.
	Open = 1.0
)

var (
	ErrInvalidPosition = errors.New("position must be between 0 and 1")
	ErrUnsupported     = errors.New("request not supported by this cover")
)

// Operation is the believed physical motion of a cover.
type Operation int

const (
	OperationIdle Operation = iota
	OperationOpening
	OperationClosing
)

func (o Operation) String() string {
	switch o {
	case OperationIdle:
		return "idle"
	case OperationOpening:
		return "opening"
	case OperationClosing:
		return "closing"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(b []byte) error {
	for _, op := range []Operation{OperationIdle, OperationOpening, OperationClosing} {
		if string(b) == op.String() {
			*o = op
			return nil
		}
	}
	return fmt.Errorf("unknown operation %q", b)
}

// opposite returns the other direction of travel. Idle has no opposite and is returned as is.
func (o Operation) opposite() Operation {
	switch o {
	case OperationOpening:
		return OperationClosing
	case OperationClosing:
		return OperationOpening
	default:
		return o
	}
}

// Target is the outstanding user request.
type Target int

const (
	TargetNone Target = iota
	TargetOpen
	TargetClose
	TargetStop
)

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetOpen:
		return "open"
	case TargetClose:
		return "close"
	case TargetStop:
		return "stop"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(b []byte) error {
	for _, target := range []Target{TargetNone, TargetOpen, TargetClose, TargetStop} {
		if string(b) == target.String() {
			*t = target
			return nil
		}
	}
	return fmt.Errorf("unknown target %q", b)
}

// operation is the operation that satisfies the target.
func (t Target) operation() Operation {
	switch t {
	case TargetOpen:
		return OperationOpening
	case TargetClose:
		return OperationClosing
	default:
		return OperationIdle
	}
}

// State is a snapshot of a cover, as handed to publishers.
type State struct {
	Name          string    `json:"name"`
	Position      float64   `json:"position"`
	Operation     Operation `json:"operation"`
	Target        Target    `json:"target"`
	LastDirection Operation `json:"last_direction"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Percent returns the position rounded to a whole percentage.
func (s State) Percent() int {
	return int(math.Round(s.Position * 100))
}

// Publisher receives the state of a cover whenever it changes, and periodically while it moves.
// Publish is called from the goroutine that drives the controller and must not block.
type Publisher interface {
	Publish(State)
}

// Publishers fans a state out to several publishers.
type Publishers []Publisher

// Publish implements Publisher.
func (p Publishers) Publish(s State) {
	for _, pub := range p {
		pub.Publish(s)
	}
}

// EventKind classifies notable events.
type EventKind string

const (
	EventActuation          EventKind = "actuation"
	EventActuationFailed    EventKind = "actuation_failed"
	EventWatchdog           EventKind = "watchdog"
	EventSensorInconsistent EventKind = "sensor_inconsistent"
	EventEndstop            EventKind = "endstop"
	EventExternalMotion     EventKind = "external_motion"
	EventTargetReached      EventKind = "target_reached"
)

// Event is a notable occurrence in the life of a cover.
type Event struct {
	Cover     string
	Kind      EventKind
	Message   string
	Position  float64
	Operation Operation
	At        time.Time
}

// Recorder receives notable events. Record must not block.
type Recorder interface {
	Record(Event)
}

// Recorders fans an event out to several recorders.
type Recorders []Recorder

// Record implements Recorder.
func (r Recorders) Record(e Event) {
	for _, rec := range r {
		rec.Record(e)
	}
}

// Endstops reports the physical endstop sensors of a cover.
type Endstops interface {
	IsOpen() bool
	IsClosed() bool
}

type requestKind int

const (
	requestPosition requestKind = iota
	requestStop
	requestProgram
)

// Request is a user request for a cover.
type Request struct {
	kind     requestKind
	position float64
}

// RequestPosition asks the cover to move to position p (0 closed, 1 open).
func RequestPosition(p float64) Request {
	return Request{kind: requestPosition, position: p}
}

// RequestOpen asks the cover to open fully.
func RequestOpen() Request { return RequestPosition(Open) }

// RequestClose asks the cover to close fully.
func RequestClose() Request { return RequestPosition(Closed) }

// RequestStop asks the cover to stop moving.
func RequestStop() Request { return Request{kind: requestStop} }

// RequestProgram asks a radio-controlled cover to send its pairing command.
func RequestProgram() Request { return Request{kind: requestProgram} }

func (r Request) String() string {
	switch r.kind {
	case requestStop:
		return "stop"
	case requestProgram:
		return "program"
	default:
		return fmt.Sprintf("position %.2f", r.position)
	}
}

func isEndpoint(p float64) bool {
	return p == Open || p == Closed
}

func clamp(p float64) float64 {
	return math.Max(Closed, math.Min(Open, p))
}
