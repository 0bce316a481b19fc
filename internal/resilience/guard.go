package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/zoobzio/clockz"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Name identifies the guarded dependency.
	Name string

	// MaxRetries is the number of retries after the first attempt.
	// Default: 2
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval.
	// Default: 50ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval.
	// Default: 1 second
	MaxInterval time.Duration

	// CircuitBreaker tunes the breaker. Zero fields take the
	// DefaultCircuitBreakerConfig values.
	CircuitBreaker CircuitBreakerConfig

	// Expected reports errors that are ordinary outcomes, such as a record
	// not being found. They are returned immediately, never retried, and do
	// not count against the breaker.
	Expected func(error) bool

	// Clock timestamps successes and failures. Default: clockz.RealClock
	Clock clockz.Clock

	// Logger receives circuit state changes. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultGuardConfig returns the default configuration for name.
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:            name,
		MaxRetries:      2,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		CircuitBreaker:  DefaultCircuitBreakerConfig(),
	}
}

// Guard protects calls to one dependency.
type Guard struct {
	config  GuardConfig
	breaker *gobreaker.CircuitBreaker[any]

	mu            sync.RWMutex
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewGuard creates a Guard.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockz.RealClock
	}

	g := &Guard{config: cfg}
	g.breaker = newCircuitBreaker(cfg.Name, cfg.CircuitBreaker, cfg.Logger, func(err error) bool {
		return err == nil || g.expected(err)
	})
	return g
}

// Name returns the guarded dependency name.
func (g *Guard) Name() string {
	return g.config.Name
}

// State returns the current circuit breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the current circuit breaker counts.
func (g *Guard) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

func (g *Guard) expected(err error) bool {
	return g.config.Expected != nil && g.config.Expected(err)
}

func (g *Guard) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialInterval
	bo.MaxInterval = g.config.MaxInterval
	bo.MaxElapsedTime = 0 // Bounded by MaxRetries instead.

	return backoff.WithContext(backoff.WithMaxRetries(bo, g.config.MaxRetries), ctx)
}

func (g *Guard) record(err error) {
	now := g.config.Clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil || g.expected(err) {
		g.lastSuccessAt = &now
		return
	}
	g.lastFailureAt = &now
	g.lastError = err.Error()
}

// Execute runs op through the guard's circuit breaker, retrying transient
// failures with exponential backoff. It returns ErrCircuitOpen without
// calling op while the breaker is open.
func Execute[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	var result T

	operation := func() error {
		v, err := g.breaker.Execute(func() (any, error) {
			r, err := op(ctx)
			return r, err
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if g.expected(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		if typed, ok := v.(T); ok {
			result = typed
		}
		return nil
	}

	err := backoff.Retry(operation, g.newBackOff(ctx))
	g.record(err)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Run is Execute for operations without a result.
func Run(ctx context.Context, g *Guard, op func(context.Context) error) error {
	_, err := Execute(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Health returns a snapshot of the guard's health.
func (g *Guard) Health() *DependencyHealth {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return &DependencyHealth{
		Name:          g.config.Name,
		CircuitState:  g.breaker.State(),
		Counts:        g.breaker.Counts(),
		LastSuccessAt: g.lastSuccessAt,
		LastFailureAt: g.lastFailureAt,
		LastError:     g.lastError,
	}
}
