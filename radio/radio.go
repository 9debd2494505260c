package radio

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrClosed is returned when sending through a device that has been closed.
var ErrClosed = errors.New("radio closed")

// Command is a remote-control button.
type Command int

const (
	CommandMy Command = iota // stop, or go to the favourite position when idle
	CommandUp
	CommandDown
	CommandProg
)

func (c Command) String() string {
	switch c {
	case CommandMy:
		return "MY"
	case CommandUp:
		return "UP"
	case CommandDown:
		return "DOWN"
	case CommandProg:
		return "PROG"
	default:
		return fmt.Sprintf("CMD%d", int(c))
	}
}

// Transmitter is the interface for RF transmitters. Frame encoding and the rolling code are the
// responsibility of the implementation.
type Transmitter interface {
	// EnterTransmitMode acquires the transmitter.
	EnterTransmitMode() error

	// EnterIdleMode releases the transmitter.
	EnterIdleMode() error

	// Send transmits one command. Only valid in transmit mode.
	Send(Command) error
}

// Transmit sends one command, holding the transmitter only for the duration of the send.
// The transmitter is returned to idle mode on every path, including a failed send.
func Transmit(tx Transmitter, cmd Command) (err error) {
	if err = tx.EnterTransmitMode(); err != nil {
		return fmt.Errorf("enter transmit mode: %w", err)
	}
	defer func() {
		if idleErr := tx.EnterIdleMode(); idleErr != nil {
			err = errors.Join(err, fmt.Errorf("enter idle mode: %w", idleErr))
		}
	}()
	return tx.Send(cmd)
}

// Config holds configuration for the RF gateway.
type Config struct {
	Type   string `yaml:"type"`   // "serial", "none"
	Device string `yaml:"device"` // e.g., "/dev/ttyUSB0"
	Baud   int    `yaml:"baud"`
}

// Noop implements Transmitter but only logs.
// Used when no radio is configured.
type Noop struct {
	Remote uint32
	Logger *zap.SugaredLogger
}

// EnterTransmitMode implements Transmitter.EnterTransmitMode.
func (n *Noop) EnterTransmitMode() error { return nil }

// EnterIdleMode implements Transmitter.EnterIdleMode.
func (n *Noop) EnterIdleMode() error { return nil }

// Send implements Transmitter.Send.
func (n *Noop) Send(cmd Command) error {
	if n.Logger != nil {
		n.Logger.Infow("radio disabled, dropping command", "remote", fmt.Sprintf("%06X", n.Remote), "command", cmd)
	}
	return nil
}
