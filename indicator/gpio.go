package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

type pinDriver interface {
	PinSet(pin uint8)
	PinClear(pin uint8)
	Close() error
}

// GPIO implements Indicator using discrete GPIO LED pins.
type GPIO struct {
	hw        pinDriver
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
}

// NewGPIO creates a new GPIO-based indicator. All LEDs start off.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	for _, pin := range []*uint8{greenPin, yellowPin, redPin} {
		if pin != nil {
			hw.PinMode(*pin, govattu.ALToutput)
		}
	}
	return newGPIO(hw, greenPin, yellowPin, redPin), nil
}

func newGPIO(hw pinDriver, greenPin, yellowPin, redPin *uint8) *GPIO {
	g := &GPIO{
		hw:        hw,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}
	g.allOff()
	return g
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.only(g.greenPin)
}

// Moving implements Indicator.Moving.
func (g *GPIO) Moving() {
	g.only(g.yellowPin)
}

// Fault implements Indicator.Fault.
func (g *GPIO) Fault() {
	g.only(g.redPin)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.only(g.yellowPin, g.redPin)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) only(pins ...*uint8) {
	g.allOff()
	for _, pin := range pins {
		if pin != nil {
			g.hw.PinSet(*pin)
		}
	}
}

func (g *GPIO) allOff() {
	for _, pin := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if pin != nil {
			g.hw.PinClear(*pin)
		}
	}
}
