package cover

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coverctl/radio"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

type fakeRelay struct {
	activations int
	err         error
}

func (r *fakeRelay) Activate() error {
	if r.err != nil {
		return r.err
	}
	r.activations++
	return nil
}

type fakeTransmitter struct {
	sent  []radio.Command
	err   error
	modes []string
}

func (f *fakeTransmitter) EnterTransmitMode() error {
	f.modes = append(f.modes, "tx")
	return nil
}

func (f *fakeTransmitter) EnterIdleMode() error {
	f.modes = append(f.modes, "idle")
	return nil
}

func (f *fakeTransmitter) Send(cmd radio.Command) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

type fakeEndstops struct {
	open, closed bool
}

func (f *fakeEndstops) IsOpen() bool   { return f.open }
func (f *fakeEndstops) IsClosed() bool { return f.closed }

type sink struct {
	states []State
	events []Event
}

func (s *sink) Publish(st State) { s.states = append(s.states, st) }
func (s *sink) Record(e Event)   { s.events = append(s.events, e) }

func (s *sink) kinds() []EventKind {
	var kinds []EventKind
	for _, e := range s.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (s *sink) count(kind EventKind) int {
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func newDirectional(t *testing.T, cfg Config, opts ...Option) (*Controller, *fakeTransmitter, *sink) {
	t.Helper()
	tx := &fakeTransmitter{}
	s := &sink{}
	opts = append([]Option{WithPublisher(s), WithRecorder(s)}, opts...)
	c, err := New("shutter", cfg, NewDirectional(tx), opts...)
	require.NoError(t, err)
	return c, tx, s
}

func newToggle(t *testing.T, cfg Config, opts ...Option) (*Controller, *fakeRelay, *sink) {
	t.Helper()
	r := &fakeRelay{}
	s := &sink{}
	opts = append([]Option{WithPublisher(s), WithRecorder(s)}, opts...)
	c, err := New("garage", cfg, NewToggleRelay(r), opts...)
	require.NoError(t, err)
	return c, r, s
}

// tickEvery ticks c from from to to (inclusive) in steps of step.
func tickEvery(c *Controller, from, to, step time.Duration) {
	for d := from; d <= to; d += step {
		c.Tick(at(d))
	}
}
