package indicator

import (
	"sync"

	"coverctl/cover"
)

type display int

const (
	displayNone display = iota
	displayIdle
	displayMoving
	displayFault
	displayConnectionLost
)

// Status drives an Indicator from cover states and events. It implements cover.Publisher and
// cover.Recorder and is safe for concurrent use.
//
// A lost broker connection takes precedence, then faults, then motion. A fault is shown until
// the faulty cover starts its next motion.
type Status struct {
	ind Indicator

	mu        sync.Mutex
	moving    map[string]bool
	faults    map[string]bool
	connected bool
	shown     display
}

// NewStatus returns a Status driving ind. The broker connection is assumed to be up.
func NewStatus(ind Indicator) *Status {
	s := &Status{
		ind:       ind,
		moving:    make(map[string]bool),
		faults:    make(map[string]bool),
		connected: true,
	}
	s.update()
	return s
}

// Publish implements cover.Publisher.
func (s *Status) Publish(st cover.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	moving := st.Operation != cover.OperationIdle
	if moving && !s.moving[st.Name] {
		delete(s.faults, st.Name)
	}
	s.moving[st.Name] = moving
	s.update()
}

// Record implements cover.Recorder.
func (s *Status) Record(e cover.Event) {
	switch e.Kind {
	case cover.EventWatchdog, cover.EventActuationFailed, cover.EventSensorInconsistent:
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[e.Cover] = true
	s.update()
}

// SetConnected reports the broker connection state.
func (s *Status) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	s.update()
}

func (s *Status) update() {
	want := displayIdle
	switch {
	case !s.connected:
		want = displayConnectionLost
	case len(s.faults) > 0:
		want = displayFault
	default:
		for _, moving := range s.moving {
			if moving {
				want = displayMoving
				break
			}
		}
	}
	if want == s.shown {
		return
	}
	s.shown = want

	switch want {
	case displayConnectionLost:
		s.ind.ConnectionLost()
	case displayFault:
		s.ind.Fault()
	case displayMoving:
		s.ind.Moving()
	default:
		s.ind.Idle()
	}
}
