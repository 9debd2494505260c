package cover

import "time"

// recompute integrates the position over the time elapsed since the last call.
// It must run before every transition so that no elapsed motion is lost.
func (c *Controller) recompute(now time.Time) {
	if c.operation == OperationIdle {
		return
	}

	var dir float64
	var travel time.Duration
	switch c.operation {
	case OperationOpening:
		dir, travel = 1, c.cfg.OpenDuration
	case OperationClosing:
		dir, travel = -1, c.cfg.CloseDuration
	default:
		return
	}

	elapsed := now.Sub(c.lastRecompute)
	if elapsed > 0 {
		c.position = clamp(c.position + dir*float64(elapsed)/float64(travel))
	}
	c.lastRecompute = now
}
