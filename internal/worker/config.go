// Package worker provides background compliance jobs for FleetOps.
package worker

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Job types accepted on the trigger subscription.
const (
	JobComplianceSweep = "compliance_sweep"
	JobHealthCheck     = "health_check"
)

// SweepConfig holds configuration for the compliance sweep job.
type SweepConfig struct {
	// Interval is the ticker period used when no Pub/Sub subscription is
	// configured.
	// Default: 1 hour
	Interval time.Duration

	// Timeout bounds a single sweep.
	// Default: 30 seconds
	Timeout time.Duration

	// Detailed computes the per-province breakdown and logs it.
	// Default: false
	Detailed bool
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval: time.Hour,
		Timeout:  30 * time.Second,
	}
}

// SweepConfigFromEnv reads SWEEP_INTERVAL, SWEEP_TIMEOUT and SWEEP_DETAILED.
// Unset variables keep their defaults.
func SweepConfigFromEnv() (SweepConfig, error) {
	cfg := DefaultSweepConfig()
	var errs []error

	interval, err := ParseInterval(os.Getenv("SWEEP_INTERVAL"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Interval = interval

	if v := os.Getenv("SWEEP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid SWEEP_TIMEOUT %q: %w", v, err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("SWEEP_TIMEOUT must be positive, got %s", d))
		default:
			cfg.Timeout = d
		}
	}

	if v := os.Getenv("SWEEP_DETAILED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid SWEEP_DETAILED %q: %w", v, err))
		}
		cfg.Detailed = b
	}

	return cfg, errors.Join(errs...)
}

// TriggerConfig selects the Pub/Sub subscription that triggers sweeps.
// Without one the worker sweeps on its own ticker.
type TriggerConfig struct {
	ProjectID      string
	Subscription   string
	MaxOutstanding int
}

// Enabled reports whether both the project and subscription are set.
func (c TriggerConfig) Enabled() bool {
	return c.ProjectID != "" && c.Subscription != ""
}

// TriggerConfigFromEnv reads PUBSUB_PROJECT_ID, PUBSUB_SUBSCRIPTION and
// PUBSUB_MAX_OUTSTANDING.
func TriggerConfigFromEnv() (TriggerConfig, error) {
	cfg := TriggerConfig{
		ProjectID:      os.Getenv("PUBSUB_PROJECT_ID"),
		Subscription:   os.Getenv("PUBSUB_SUBSCRIPTION"),
		MaxOutstanding: 1,
	}
	if v := os.Getenv("PUBSUB_MAX_OUTSTANDING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("PUBSUB_MAX_OUTSTANDING must be a positive integer, got %q", v)
		}
		cfg.MaxOutstanding = n
	}
	return cfg, nil
}

// ParseInterval parses a SWEEP_INTERVAL value. An empty string yields the
// default interval.
func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		return DefaultSweepConfig().Interval, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sweep interval %q: %w", s, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("sweep interval %s is below 1s", d)
	}
	return d, nil
}

func (c SweepConfig) withDefaults() SweepConfig {
	def := DefaultSweepConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
