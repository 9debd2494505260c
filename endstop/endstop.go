// Package endstop reads the limit switches that report a fully open or fully closed cover.
package endstop

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultDebounce filters contact bounce on the switch inputs.
const DefaultDebounce = 50 * time.Millisecond

// Endstop sources.
const (
	SourceGPIO = "gpio"
	SourceMQTT = "mqtt"
)

// Config holds configuration for a pair of endstops.
type Config struct {
	Source     string        `yaml:"source"` // "gpio" (default) or "mqtt"
	Chip       string        `yaml:"chip"`
	OpenPin    *int          `yaml:"open_pin"`
	ClosedPin  *int          `yaml:"closed_pin"`
	ActiveHigh bool          `yaml:"active_high"` // default: switches pull the line low
	Debounce   time.Duration `yaml:"debounce"`
}

// Configured reports whether any endstop pin is set.
func (c Config) Configured() bool {
	return c.OpenPin != nil || c.ClosedPin != nil
}

// Remote reports whether the readings are delivered over MQTT.
func (c Config) Remote() bool {
	return c.Source == SourceMQTT
}

// Validate checks the source against the configured pins.
func (c Config) Validate() error {
	switch c.Source {
	case "", SourceGPIO:
	case SourceMQTT:
		if c.Configured() {
			return errors.New("endstops over mqtt take no pins")
		}
	default:
		return fmt.Errorf("unknown endstop source %q", c.Source)
	}
	return nil
}

// Static is a pair of endstops whose state is set by the caller, for limit switches wired to
// another device that reports them over MQTT.
type Static struct {
	open   atomic.Bool
	closed atomic.Bool
}

// Set updates both readings.
func (s *Static) Set(open, closed bool) {
	s.open.Store(open)
	s.closed.Store(closed)
}

// IsOpen reports whether the open endstop is active.
func (s *Static) IsOpen() bool { return s.open.Load() }

// IsClosed reports whether the closed endstop is active.
func (s *Static) IsClosed() bool { return s.closed.Load() }
