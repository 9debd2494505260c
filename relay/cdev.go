//go:build linux

package relay

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// CDev implements Relay on a GPIO character device line.
type CDev struct {
	line  *gpiocdev.Line
	pulse time.Duration

	mu      sync.Mutex
	pressed bool
	release *time.Timer
}

// NewCDev requests offset on chip as an output, initially inactive.
func NewCDev(chip string, offset int, activeLow bool, pulse time.Duration) (*CDev, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("coverctl")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}
	return &CDev{line: line, pulse: pulse}, nil
}

// Activate implements Relay.Activate.
func (c *CDev) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pressed {
		return ErrBusy
	}
	if err := c.line.SetValue(1); err != nil {
		return fmt.Errorf("set line %d: %w", c.line.Offset(), err)
	}
	c.pressed = true
	c.release = time.AfterFunc(c.pulse, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pressed = false
		_ = c.line.SetValue(0)
	})
	return nil
}

// Release implements Relay.Release.
func (c *CDev) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release != nil {
		c.release.Stop()
	}
	_ = c.line.SetValue(0)
	return c.line.Close()
}
