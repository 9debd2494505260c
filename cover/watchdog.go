package cover

import "time"

// checkWatchdog detects a motion that has run longer than physically possible, usually because
// someone stopped the cover by hand.
func (c *Controller) checkWatchdog(now time.Time) {
	if c.operation == OperationIdle {
		return
	}
	elapsed := now.Sub(c.startMotion)
	if elapsed <= c.cfg.MaxDuration {
		return
	}

	c.logger.Warnw("max duration reached, motion must have been interrupted",
		"elapsed", elapsed, "max", c.cfg.MaxDuration, "operation", c.operation, "policy", c.cfg.Watchdog)
	c.record(now, EventWatchdog, "max duration of %s exceeded while %s", c.cfg.MaxDuration, c.operation)
	c.startMotion = now

	if c.cfg.Watchdog != WatchdogStop {
		return
	}
	c.target = TargetNone
	c.goal = noGoal
	c.actuator.halt(c, now)
}
