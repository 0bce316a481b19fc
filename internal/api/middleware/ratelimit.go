package middleware

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/fleetops/fleetops/internal/api/models"
)

// RateLimitConfig is one rate limit tier.
type RateLimitConfig struct {
	Name         string
	RequestLimit int
	WindowLength time.Duration
}

func (c RateLimitConfig) String() string {
	return fmt.Sprintf("%d/%s", c.RequestLimit, c.WindowLength)
}

// RateLimits groups the tiers applied by the router.
type RateLimits struct {
	// Admin applies to feature flag mutations.
	Admin RateLimitConfig
	// Expensive applies to fleet-wide scans such as best matches and
	// workbook exports.
	Expensive RateLimitConfig
	// Standard applies to every other /v1 endpoint.
	Standard RateLimitConfig
}

// DefaultRateLimits returns 10, 30 and 100 requests per minute.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Admin:     RateLimitConfig{Name: "admin", RequestLimit: 10, WindowLength: time.Minute},
		Expensive: RateLimitConfig{Name: "expensive", RequestLimit: 30, WindowLength: time.Minute},
		Standard:  RateLimitConfig{Name: "standard", RequestLimit: 100, WindowLength: time.Minute},
	}
}

// RateLimitsFromEnv overrides the defaults with RATE_LIMIT_ADMIN,
// RATE_LIMIT_EXPENSIVE and RATE_LIMIT_STANDARD, each written as
// "<requests>/<window>", for example "60/1m".
func RateLimitsFromEnv() (RateLimits, error) {
	limits := DefaultRateLimits()
	for key, tier := range map[string]*RateLimitConfig{
		"RATE_LIMIT_ADMIN":     &limits.Admin,
		"RATE_LIMIT_EXPENSIVE": &limits.Expensive,
		"RATE_LIMIT_STANDARD":  &limits.Standard,
	} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		parsed, err := ParseRateLimit(tier.Name, raw)
		if err != nil {
			return RateLimits{}, fmt.Errorf("%s: %w", key, err)
		}
		*tier = parsed
	}
	return limits, nil
}

// ParseRateLimit parses "<requests>/<window>".
func ParseRateLimit(name, s string) (RateLimitConfig, error) {
	count, window, ok := strings.Cut(s, "/")
	if !ok {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: want <requests>/<window>", s)
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: request count must be a positive integer", s)
	}
	d, err := time.ParseDuration(window)
	if err != nil || d < time.Second {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: window must be a duration of at least 1s", s)
	}
	return RateLimitConfig{Name: name, RequestLimit: n, WindowLength: d}, nil
}

// RateLimit limits requests per X-Client-Id, as set by the ClientID
// middleware, falling back to the caller's IP.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))
	detail := fmt.Sprintf("Rate limit of %d requests per %s exceeded.", cfg.RequestLimit, cfg.WindowLength)

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByClientOrIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail)
			problem.Instance = r.URL.Path

			// httprate does not expose the window reset, so advertise a full window.
			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w)
		}),
	)
}

func keyByClientOrIP(r *http.Request) (string, error) {
	if clientID := GetClientID(r.Context()); clientID != "" {
		return "client:" + clientID, nil
	}
	return httprate.KeyByRealIP(r)
}
