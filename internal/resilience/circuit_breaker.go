// Package resilience wraps calls to backing stores with a circuit breaker,
// bounded exponential retry, and health bookkeeping.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig sets when a store's breaker opens and how it probes
// for recovery.
type CircuitBreakerConfig struct {
	// MinRequests is the sample size required before the breaker may trip.
	// Default: 5
	MinRequests uint32

	// FailureRatio trips the breaker once failures/requests reaches it.
	// Default: 0.5
	FailureRatio float64

	// HalfOpenRequests is the number of probes allowed while half-open.
	// Default: 1
	HalfOpenRequests uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// Interval clears the closed-state counts periodically. Zero keeps
	// counting until the breaker trips.
	Interval time.Duration
}

// DefaultCircuitBreakerConfig returns the breaker used for the fleet store.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MinRequests:      5,
		FailureRatio:     0.5,
		HalfOpenRequests: 1,
		OpenTimeout:      30 * time.Second,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = def.FailureRatio
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = def.HalfOpenRequests
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	return c
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newCircuitBreaker(name string, cfg CircuitBreakerConfig, log zerolog.Logger, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[any] {
	cfg = cfg.withDefaults()

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         name,
		MaxRequests:  cfg.HalfOpenRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.OpenTimeout,
		ReadyToTrip:  cfg.readyToTrip,
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := log.Info()
			if to == gobreaker.StateOpen {
				event = log.Warn()
			}
			event.
				Str("dependency", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit state changed")
		},
	})
}
