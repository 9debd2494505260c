package relay

import "sync/atomic"

// Noop implements Relay but does nothing.
// Used when no relay is configured. It counts activations.
type Noop struct {
	activations atomic.Int64
}

// Activate implements Relay.Activate.
func (n *Noop) Activate() error {
	n.activations.Add(1)
	return nil
}

// Activations returns the number of Activate calls.
func (n *Noop) Activations() int64 {
	return n.activations.Load()
}

// Release implements Relay.Release.
func (n *Noop) Release() error {
	return nil
}
