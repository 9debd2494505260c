package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"coverctl/cover"
	"coverctl/endstop"
	"coverctl/eventpipe"
	"coverctl/indicator"
	"coverctl/mqtt"
	"coverctl/radio"
	"coverctl/relay"
)

// Cover types.
const (
	coverToggle      = "toggle"
	coverDirectional = "directional"
)

// Config is the device configuration of coverctl.
type Config struct {
	// General settings
	ClientID string `yaml:"client_id"`

	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// RF gateway shared by directional covers
	Radio radio.Config `yaml:"radio"`

	// Event journal
	Journal JournalConfig `yaml:"journal"`

	// Local command pipe
	Pipe eventpipe.Config `yaml:"pipe"`

	// Indicator configuration
	Indicator indicator.Config `yaml:"indicator"`

	Covers []CoverConfig `yaml:"covers"`
}

// JournalConfig holds event journal settings.
type JournalConfig struct {
	Path   string `yaml:"path"` // SQLite file, empty = disabled
	Buffer int    `yaml:"buffer"`
}

// CoverConfig describes one cover.
type CoverConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "toggle" or "directional"

	OpenDuration       time.Duration `yaml:"open_duration"`
	CloseDuration      time.Duration `yaml:"close_duration"`
	MaxDuration        time.Duration `yaml:"max_duration"`        // default: twice the longer travel time
	ActivationInterval time.Duration `yaml:"activation_interval"` // default: 1s for toggle covers
	PublishInterval    time.Duration `yaml:"publish_interval"`
	Watchdog           string        `yaml:"watchdog"` // "stop" (default) or "rearm"

	// toggle covers
	Relay relay.Config `yaml:"relay"`

	// directional covers
	RemoteCode uint32 `yaml:"remote_code"`

	Endstops endstop.Config `yaml:"endstops"`
}

// LoadConfig reads the configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.SetStrict(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id missing"))
	}
	if len(c.Covers) == 0 {
		errs = append(errs, errors.New("no covers configured"))
	}

	seen := make(map[string]bool)
	for i, cc := range c.Covers {
		if cc.Name == "" {
			errs = append(errs, fmt.Errorf("cover %d: name missing", i+1))
			continue
		}
		if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("cover %s: duplicate name", cc.Name))
		}
		seen[cc.Name] = true

		switch cc.Type {
		case coverToggle:
			if err := cc.Relay.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("cover %s: %w", cc.Name, err))
			} else if interval, pulse := cc.coverConfig().ActivationInterval, cc.Relay.PulseLength(); interval <= pulse {
				errs = append(errs, fmt.Errorf("cover %s: activation interval %s must be longer than the relay pulse %s", cc.Name, interval, pulse))
			}
		case coverDirectional:
			if cc.RemoteCode == 0 {
				errs = append(errs, fmt.Errorf("cover %s: remote_code missing", cc.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("cover %s: unknown type %q", cc.Name, cc.Type))
		}
		if err := cc.Endstops.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("cover %s: %w", cc.Name, err))
		} else if cc.Endstops.Remote() && c.MQTT.Host == "" {
			errs = append(errs, fmt.Errorf("cover %s: endstops over mqtt need an mqtt host", cc.Name))
		}
		if err := cc.coverConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("cover %s: %w", cc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// coverConfig returns the controller settings of the cover.
func (cc CoverConfig) coverConfig() cover.Config {
	interval := cc.ActivationInterval
	if interval == 0 && cc.Type == coverToggle {
		interval = cover.DefaultActivationInterval
	}
	return cover.Config{
		OpenDuration:       cc.OpenDuration,
		CloseDuration:      cc.CloseDuration,
		MaxDuration:        cc.MaxDuration,
		ActivationInterval: interval,
		PublishInterval:    cc.PublishInterval,
		Watchdog:           cover.WatchdogPolicy(cc.Watchdog),
	}
}

// endstopSource describes where the endstops of a cover are read, for display.
func endstopSource(cfg endstop.Config) string {
	switch {
	case cfg.Remote():
		return endstop.SourceMQTT
	case cfg.Configured():
		return endstop.SourceGPIO
	default:
		return "-"
	}
}
