package cover

import "time"

// reconcile applies the endstop readings. Sensors are ground truth: whatever the estimator
// computed is overridden when one of them is active. A switch that is still held while the cover
// leaves it is ignored until it releases.
func (c *Controller) reconcile(now time.Time, isOpen, isClosed bool) {
	wasOpen, wasClosed := c.sawOpen, c.sawClosed
	c.sawOpen, c.sawClosed = isOpen, isClosed

	switch {
	case isOpen && isClosed:
		if !(wasOpen && wasClosed) {
			c.logger.Warnw("both endstops active, ignoring sensors", "position", c.position)
			c.record(now, EventSensorInconsistent, "open and closed endstops active at the same time")
		}
	case isOpen:
		if !wasOpen || c.operation != OperationClosing {
			c.settleAt(now, Open, OperationOpening)
		}
	case isClosed:
		if !wasClosed || c.operation != OperationOpening {
			c.settleAt(now, Closed, OperationClosing)
		}
	case wasOpen && !wasClosed:
		c.externalMotion(now, OperationClosing)
	case wasClosed && !wasOpen:
		c.externalMotion(now, OperationOpening)
	}
}

// settleAt forces the cover to rest at an endpoint reported by a sensor.
func (c *Controller) settleAt(now time.Time, position float64, direction Operation) {
	changed := c.position != position || c.operation != OperationIdle
	if c.operation == direction {
		c.logger.Debugw("endstop reached", "took", now.Sub(c.startMotion), "position", position)
	}

	c.position = position
	c.lastDirection = direction
	c.transition(now, OperationIdle)

	if changed {
		c.record(now, EventEndstop, "endstop reached at %.0f%%", position*100)
		c.publish(now)
	}
}

// externalMotion handles an endstop that released while the cover was believed to be at rest:
// the cover was moved by a wall button or a handheld remote.
func (c *Controller) externalMotion(now time.Time, direction Operation) {
	if c.operation != OperationIdle {
		return
	}
	c.logger.Infow("endstop released while idle, cover moved externally", "direction", direction)
	c.record(now, EventExternalMotion, "endstop released, assuming %s", direction)
	c.transition(now, direction)
	c.publish(now)
}
