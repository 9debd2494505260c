//go:build !linux

package relay

import (
	"errors"
	"time"
)

var ErrNotSupported = errors.New("gpio character device not supported on this platform")

// CDev is a stub for non-linux platforms.
type CDev struct{}

// NewCDev returns an error on non-linux platforms.
func NewCDev(chip string, offset int, activeLow bool, pulse time.Duration) (*CDev, error) {
	return nil, ErrNotSupported
}

func (c *CDev) Activate() error { return ErrNotSupported }
func (c *CDev) Release() error  { return nil }
