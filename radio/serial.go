package radio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const defaultBaud = 115200

// Device is an RF gateway attached to a serial port. The gateway speaks a line protocol:
//
//	MODE TX                 - switch the transceiver to transmit
//	SEND <remote> <command> - transmit one frame for a remote (hex id)
//	MODE IDLE               - switch the transceiver back to idle
//
// The gateway increments and stores the rolling code of each remote.
// A Device is shared by all remotes; it transmits for one remote at a time.
type Device struct {
	mu     sync.Mutex
	port   io.WriteCloser
	closed bool
}

// Open opens the serial port of an RF gateway.
func Open(cfg Config) (*Device, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = defaultBaud
	}
	c := &serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	return NewDevice(port), nil
}

// NewDevice wraps an already opened port.
func NewDevice(port io.WriteCloser) *Device {
	return &Device{port: port}
}

// Remote returns the transmitter for one remote control id.
func (d *Device) Remote(code uint32) *Remote {
	return &Remote{dev: d, code: code}
}

// Close closes the serial port.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.port.Close()
}

func (d *Device) writeLine(line string) error {
	if d.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(d.port, line+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	return nil
}

// Remote implements Transmitter for one remote id of a Device. Entering transmit mode takes the
// device for exclusive use until idle mode is entered again.
type Remote struct {
	dev  *Device
	code uint32
}

// EnterTransmitMode implements Transmitter.EnterTransmitMode.
func (r *Remote) EnterTransmitMode() error {
	r.dev.mu.Lock()
	if err := r.dev.writeLine("MODE TX"); err != nil {
		r.dev.mu.Unlock()
		return err
	}
	return nil
}

// EnterIdleMode implements Transmitter.EnterIdleMode.
func (r *Remote) EnterIdleMode() error {
	defer r.dev.mu.Unlock()
	return r.dev.writeLine("MODE IDLE")
}

// Send implements Transmitter.Send.
func (r *Remote) Send(cmd Command) error {
	return r.dev.writeLine(fmt.Sprintf("SEND %06X %s", r.code, cmd))
}
