package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/hjkoskel/govattu"
)

// DefaultPulse is how long the contact stays closed on each activation.
const DefaultPulse = 300 * time.Millisecond

// ErrBusy is returned by Activate while the contact of the previous activation is still closed.
var ErrBusy = errors.New("relay contact still closed")

// Relay is the interface for all push-button relay implementations.
type Relay interface {
	// Activate presses the button once. It returns as soon as the contact is closed;
	// the contact is released after the pulse length in the background. A press during
	// that pulse fails with ErrBusy.
	Activate() error

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for relay implementations.
type Config struct {
	Type      string        `yaml:"type"`       // "gpio_high", "gpio_low", "cdev", "none"
	Pin       *int          `yaml:"pin"`        // GPIO pin number, or line offset for cdev
	Chip      string        `yaml:"chip"`       // gpiochip for cdev, default "gpiochip0"
	ActiveLow bool          `yaml:"active_low"` // cdev only
	Pulse     time.Duration `yaml:"pulse"`      // contact time, default 300ms
}

// PulseLength returns the configured contact time, or DefaultPulse.
func (c Config) PulseLength() time.Duration {
	if c.Pulse <= 0 {
		return DefaultPulse
	}
	return c.Pulse
}

// Validate checks that the configuration drives real hardware, or explicitly none.
func (c Config) Validate() error {
	switch c.Type {
	case "gpio_high", "gpio_low", "cdev":
		if c.Pin == nil {
			return fmt.Errorf("relay %s: pin missing", c.Type)
		}
	case "none":
	case "":
		return errors.New(`relay type missing (use "none" for a dry run)`)
	default:
		return fmt.Errorf("unknown relay type %q", c.Type)
	}
	if c.Pulse < 0 {
		return fmt.Errorf("relay pulse must not be negative, got %s", c.Pulse)
	}
	return nil
}

// New creates a Relay based on the provided configuration.
func New(cfg Config) (Relay, error) {
	if cfg.Pin == nil {
		return &Noop{}, nil
	}
	pulse := cfg.PulseLength()

	switch cfg.Type {
	case "gpio_high", "gpio_low":
		hw, err := govattu.Open()
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		return NewGPIO(hw, uint8(*cfg.Pin), cfg.Type == "gpio_high", pulse)
	case "cdev":
		return NewCDev(cfg.Chip, *cfg.Pin, cfg.ActiveLow, pulse)
	case "", "none":
		return &Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown relay type %q", cfg.Type)
	}
}
