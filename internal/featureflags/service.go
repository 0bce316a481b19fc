package featureflags

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long a loaded snapshot is trusted
	Clock      clockz.Clock
}

// Service evaluates flags from a cached snapshot of defaults merged with
// stored overrides. If the repository cannot be read, the last snapshot (or
// the defaults) keeps serving.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	clock    clockz.Clock
	defaults map[string]*Flag

	mu       sync.RWMutex
	snapshot map[string]*Flag // replaced wholesale, never mutated
	expiry   time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockz.RealClock
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		clock:    clock,
		defaults: defaultsAt(clock.Now()),
	}
}

// GetFlag returns the current value of key, or nil for an unknown key.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	flag, ok := s.current(ctx)[key]
	if !ok {
		return nil
	}
	return flag.clone()
}

// List returns every known flag ordered by key.
func (s *Service) List(ctx context.Context) []Flag {
	snap := s.current(ctx)
	out := make([]Flag, 0, len(snap))
	for _, flag := range snap {
		out = append(out, *flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Active returns the keys of the switches that are on, ordered by key.
func (s *Service) Active(ctx context.Context) []string {
	var active []string
	for key, flag := range s.current(ctx) {
		if flag.BoolValue(false) {
			active = append(active, key)
		}
	}
	sort.Strings(active)
	return active
}

// IsEnabled reports whether the switch named key is on.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.current(ctx)[key].BoolValue(false)
}

// SetFlag switches a single flag.
func (s *Service) SetFlag(ctx context.Context, key string, enabled bool) error {
	_, err := s.Apply(ctx, FlagUpdateRequest{
		Updates: []FlagUpdate{{Key: key, Value: enabled}},
	})
	return err
}

// Apply validates and stores every update in req together. Nothing is
// written when any update names an unknown key or carries a non-boolean.
func (s *Service) Apply(ctx context.Context, req FlagUpdateRequest) ([]*Flag, error) {
	for _, u := range req.Updates {
		if err := u.check(); err != nil {
			return nil, err
		}
	}

	before := s.current(ctx)
	now := s.clock.Now()

	flags := make([]*Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		def, _ := Lookup(u.Key)
		flags = append(flags, &Flag{
			Key:         u.Key,
			Value:       u.Value,
			Description: def.Description,
			Reason:      req.Reason,
			UpdatedAt:   now,
		})
	}

	if err := s.repo.SaveFlags(ctx, flags); err != nil {
		return nil, err
	}

	s.mu.Lock()
	base := s.snapshot
	if base == nil {
		base = before
	}
	next := make(map[string]*Flag, len(base))
	for k, v := range base {
		next[k] = v
	}
	for _, f := range flags {
		next[f.Key] = f.clone()
	}
	s.snapshot = next
	s.mu.Unlock()

	for _, f := range flags {
		s.logger.Info().
			Str("flag", f.Key).
			Bool("from", before[f.Key].BoolValue(false)).
			Bool("to", f.BoolValue(false)).
			Str("reason", f.Reason).
			Msg("feature flag changed")
	}

	return flags, nil
}

// InvalidateCache forces the next read to reload from the repository. The
// old snapshot stays as the fallback if that reload fails.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry = time.Time{}
}

func (s *Service) current(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	snap, fresh := s.snapshot, s.snapshot != nil && s.clock.Now().Before(s.expiry)
	s.mu.RUnlock()
	if fresh {
		return snap
	}

	stored, err := s.repo.ListFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load feature flags, serving last known values")
		if snap != nil {
			return snap
		}
		return s.defaults
	}

	next := make(map[string]*Flag, len(s.defaults))
	for k, v := range s.defaults {
		next[k] = v
	}
	for _, f := range stored {
		def, ok := Lookup(f.Key)
		if !ok {
			continue
		}
		f.Description = def.Description
		next[f.Key] = f
	}

	s.mu.Lock()
	s.snapshot = next
	s.expiry = s.clock.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return next
}

// Convenience methods for well-known flags.

// IsCompatibilityHistoryDisabled returns true if compatibility checks are not saved.
func (s *Service) IsCompatibilityHistoryDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableCompatibilityHistory)
}

// IsProvincialRulesDisabled returns true if provincial towing rules are skipped.
func (s *Service) IsProvincialRulesDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableProvincialRules)
}

// IsTimelineLegacyHorizon returns true if the timeline uses the 90-day horizon.
func (s *Service) IsTimelineLegacyHorizon(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagTimelineLegacyHorizon)
}

// IsComplianceSweepDisabled returns true if the scheduled sweep is paused.
func (s *Service) IsComplianceSweepDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableComplianceSweep)
}
