//go:build !linux

package endstop

import "errors"

var ErrNotSupported = errors.New("endstops not supported on this platform")

// Sensor is a stub for non-linux platforms.
type Sensor struct{}

// New returns an error on non-linux platforms when pins are configured.
func New(cfg Config) (*Sensor, error) {
	if !cfg.Configured() || cfg.Remote() {
		return nil, nil
	}
	return nil, ErrNotSupported
}

func (s *Sensor) IsOpen() bool   { return false }
func (s *Sensor) IsClosed() bool { return false }
func (s *Sensor) Release() error { return nil }
