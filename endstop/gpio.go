//go:build linux

package endstop

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// Sensor reads the open and closed endstops from GPIO character device lines.
// A missing pin reads as inactive.
type Sensor struct {
	openLine   *gpiocdev.Line
	closedLine *gpiocdev.Line
	open       atomic.Bool
	closed     atomic.Bool
}

// New requests the endstop lines. Returns nil if no pins are configured or the readings come
// over MQTT.
func New(cfg Config) (*Sensor, error) {
	if !cfg.Configured() || cfg.Remote() {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	s := &Sensor{}
	var err error
	if cfg.OpenPin != nil {
		s.openLine, err = request(cfg, *cfg.OpenPin, &s.open)
		if err != nil {
			return nil, err
		}
	}
	if cfg.ClosedPin != nil {
		s.closedLine, err = request(cfg, *cfg.ClosedPin, &s.closed)
		if err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

func request(cfg Config, offset int, state *atomic.Bool) (*gpiocdev.Line, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer("coverctl"),
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(cfg.Debounce),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			switch evt.Type {
			case gpiocdev.LineEventRisingEdge:
				state.Store(true)
			case gpiocdev.LineEventFallingEdge:
				state.Store(false)
			}
		}),
	}
	if !cfg.ActiveHigh {
		opts = append(opts, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(cfg.Chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", cfg.Chip, offset, err)
	}
	v, err := line.Value()
	if err != nil {
		line.Close()
		return nil, fmt.Errorf("read %s line %d: %w", cfg.Chip, offset, err)
	}
	state.Store(v == 1)
	return line, nil
}

// IsOpen reports whether the open endstop is active.
func (s *Sensor) IsOpen() bool { return s.open.Load() }

// IsClosed reports whether the closed endstop is active.
func (s *Sensor) IsClosed() bool { return s.closed.Load() }

// Release releases GPIO resources.
func (s *Sensor) Release() error {
	if s.openLine != nil {
		s.openLine.Close()
	}
	if s.closedLine != nil {
		s.closedLine.Close()
	}
	return nil
}
