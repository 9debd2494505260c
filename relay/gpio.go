package relay

import (
	"sync"
	"time"

	"github.com/hjkoskel/govattu"
)

// pinDriver is the part of govattu.Vattu used to drive an output pin.
type pinDriver interface {
	PinSet(pin uint8)
	PinClear(pin uint8)
	Close() error
}

// GPIO implements Relay on a Raspberry Pi GPIO pin through register access.
type GPIO struct {
	hw         pinDriver
	pin        uint8
	activeHigh bool // true = set pin high to close the contact
	pulse      time.Duration

	mu      sync.Mutex
	pressed bool
	release *time.Timer
}

// NewGPIO creates a new register GPIO relay. The contact starts open.
func NewGPIO(hw govattu.Vattu, pin uint8, activeHigh bool, pulse time.Duration) (*GPIO, error) {
	hw.PinMode(pin, govattu.ALToutput)
	return newGPIO(hw, pin, activeHigh, pulse), nil
}

func newGPIO(hw pinDriver, pin uint8, activeHigh bool, pulse time.Duration) *GPIO {
	g := &GPIO{
		hw:         hw,
		pin:        pin,
		activeHigh: activeHigh,
		pulse:      pulse,
	}
	g.open()
	return g
}

// Activate implements Relay.Activate.
func (g *GPIO) Activate() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pressed {
		return ErrBusy
	}
	g.pressed = true
	g.closeContact()
	g.release = time.AfterFunc(g.pulse, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.pressed = false
		g.open()
	})
	return nil
}

// Release implements Relay.Release.
func (g *GPIO) Release() error {
	g.mu.Lock()
	if g.release != nil {
		g.release.Stop()
	}
	g.open()
	g.mu.Unlock()
	return g.hw.Close()
}

func (g *GPIO) closeContact() {
	if g.activeHigh {
		g.hw.PinSet(g.pin)
	} else {
		g.hw.PinClear(g.pin)
	}
}

func (g *GPIO) open() {
	if g.activeHigh {
		g.hw.PinClear(g.pin)
	} else {
		g.hw.PinSet(g.pin)
	}
}
