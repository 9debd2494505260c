package cover

import (
	"errors"
	"fmt"
	"time"
)

// WatchdogPolicy decides what happens when a motion runs longer than MaxDuration.
type WatchdogPolicy string

const (
	// WatchdogStop ends the believed motion. This is the default.
	WatchdogStop WatchdogPolicy = "stop"
	// WatchdogRearm only reports the timeout and restarts the motion timer.
	WatchdogRearm WatchdogPolicy = "rearm"
)

const (
	DefaultPublishInterval    = time.Second
	DefaultActivationInterval = time.Second
)

// Config holds the immutable settings of one cover.
type Config struct {
	// OpenDuration and CloseDuration are the full-travel times.
	OpenDuration  time.Duration
	CloseDuration time.Duration

	// MaxDuration is the safety ceiling of a single motion. Zero means twice the longer travel time.
	MaxDuration time.Duration

	// ActivationInterval is the minimum time between two actuations.
	ActivationInterval time.Duration

	// PublishInterval throttles state publication while the cover moves.
	PublishInterval time.Duration

	Watchdog WatchdogPolicy
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.OpenDuration <= 0 {
		errs = append(errs, fmt.Errorf("open duration must be positive, got %s", c.OpenDuration))
	}
	if c.CloseDuration <= 0 {
		errs = append(errs, fmt.Errorf("close duration must be positive, got %s", c.CloseDuration))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max duration must not be negative, got %s", c.MaxDuration))
	}
	if c.ActivationInterval < 0 {
		errs = append(errs, fmt.Errorf("activation interval must not be negative, got %s", c.ActivationInterval))
	}
	switch c.Watchdog {
	case "", WatchdogStop, WatchdogRearm:
	default:
		errs = append(errs, fmt.Errorf("unknown watchdog policy %q", c.Watchdog))
	}
	return errors.Join(errs...)
}

// Effective returns the configuration with defaults filled in, as used by the controller.
func (c Config) Effective() Config {
	if c.MaxDuration == 0 {
		c.MaxDuration = 2 * max(c.OpenDuration, c.CloseDuration)
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = DefaultPublishInterval
	}
	if c.Watchdog == "" {
		c.Watchdog = WatchdogStop
	}
	return c
}
