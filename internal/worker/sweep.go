package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"

	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/telemetry"
)

// ErrSweepDisabled is returned by RunOnce when the sweep flag pauses sweeps.
var ErrSweepDisabled = errors.New("compliance sweep disabled")

// FleetSource computes fleet compliance and reports store reachability.
type FleetSource interface {
	FleetStatus(ctx context.Context, detailed bool) (*fleet.FleetStatusReport, error)
	Ready(ctx context.Context) error
}

// SweepFlags reports whether scheduled sweeps are paused.
type SweepFlags interface {
	IsComplianceSweepDisabled(ctx context.Context) bool
}

// SweepJob evaluates fleet compliance and reports the result.
type SweepJob struct {
	config  SweepConfig
	logger  zerolog.Logger
	fleet   FleetSource
	flags   SweepFlags
	metrics *telemetry.EngineMetrics
	clock   clockz.Clock

	mu    sync.RWMutex
	stats SweepStats
}

// SweepStats tracks sweep job statistics.
type SweepStats struct {
	TotalSweeps   int64
	FailedSweeps  int64
	SkippedSweeps int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	LastOverall       compliance.Overall
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Logger  zerolog.Logger
	Fleet   FleetSource
	Flags   SweepFlags // optional
	Metrics *telemetry.EngineMetrics
	Clock   clockz.Clock
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	clock := cfg.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	return &SweepJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		fleet:   cfg.Fleet,
		flags:   cfg.Flags,
		metrics: cfg.Metrics,
		clock:   clock,
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Overall        compliance.Overall
	TotalAssets    int
	CriticalAssets int
	WarningAssets  int

	// Alerts counts upcoming renewals by band.
	Alerts map[compliance.Band]int
}

// RunOnce sweeps the fleet unless the sweep flag is on, in which case it
// returns ErrSweepDisabled.
func (j *SweepJob) RunOnce(ctx context.Context) (*SweepResult, error) {
	return j.run(ctx, j.config.Detailed)
}

func (j *SweepJob) run(ctx context.Context, detailed bool) (*SweepResult, error) {
	if j.flags != nil && j.flags.IsComplianceSweepDisabled(ctx) {
		j.mu.Lock()
		j.stats.SkippedSweeps++
		j.mu.Unlock()
		j.logger.Info().Msg("compliance sweep disabled by feature flag")
		return nil, ErrSweepDisabled
	}

	start := j.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.fleet.FleetStatus(ctx, detailed)
	if err != nil {
		j.mu.Lock()
		j.stats.TotalSweeps++
		j.stats.FailedSweeps++
		j.mu.Unlock()
		return nil, fmt.Errorf("compute fleet status: %w", err)
	}

	result := &SweepResult{
		StartTime:      start,
		Overall:        report.Overall,
		TotalAssets:    report.TotalAssets,
		CriticalAssets: report.CriticalAssets,
		WarningAssets:  report.WarningAssets,
		Alerts:         make(map[compliance.Band]int, 3),
	}

	for _, alert := range report.UpcomingRenewals {
		result.Alerts[alert.Status]++
		if alert.Status != compliance.BandRed {
			continue
		}
		j.logger.Warn().
			Str("alert_id", alert.ID).
			Str("asset_type", string(alert.AssetType)).
			Str("asset_id", alert.AssetID).
			Str("asset_name", alert.AssetName).
			Int("days_until_expiry", alert.DaysUntilExpiry).
			Str("priority", string(alert.Priority)).
			Msg(alert.Title)
	}
	j.metrics.RecordComplianceSweep(ctx, string(result.Overall))
	for band, n := range result.Alerts {
		j.metrics.RecordRenewalAlerts(ctx, string(band), n)
	}

	if report.Detailed != nil {
		for _, p := range report.Detailed.ProvinceBreakdown {
			j.logger.Info().
				Str("province", p.Province).
				Str("overall", string(p.Status.Overall)).
				Int("total_assets", p.Status.TotalAssets).
				Int("critical_assets", p.Status.CriticalAssets).
				Msg("province compliance")
		}
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(start)

	j.mu.Lock()
	j.stats.TotalSweeps++
	j.stats.LastSweepAt = result.EndTime
	j.stats.LastSweepDuration = result.Duration
	j.stats.LastOverall = result.Overall
	j.mu.Unlock()

	j.logger.Info().
		Str("overall", string(result.Overall)).
		Int("total_assets", result.TotalAssets).
		Int("critical_assets", result.CriticalAssets).
		Int("warning_assets", result.WarningAssets).
		Int("expired_documents", report.ExpiredDocuments).
		Int("expiring_documents", report.ExpiringDocuments).
		Int("red_alerts", result.Alerts[compliance.BandRed]).
		Dur("duration", result.Duration).
		Msg("compliance sweep completed")

	return result, nil
}

// HealthCheck verifies that fleet records can be read.
func (j *SweepJob) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return j.fleet.Ready(ctx)
}

// RunEvery sweeps on every tick of the configured interval until ctx is
// cancelled. Failed sweeps are logged and retried on the next tick.
func (j *SweepJob) RunEvery(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Msg("starting compliance sweep ticker")

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.clock.After(j.config.Interval):
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, ErrSweepDisabled) {
				j.logger.Error().Err(err).Msg("compliance sweep failed")
			}
		}
	}
}

// Stats returns a copy of the current statistics.
func (j *SweepJob) Stats() SweepStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}

// StatsSnapshot returns the current statistics as a map.
func (j *SweepJob) StatsSnapshot() map[string]interface{} {
	s := j.Stats()
	return map[string]interface{}{
		"total_sweeps":        s.TotalSweeps,
		"failed_sweeps":       s.FailedSweeps,
		"skipped_sweeps":      s.SkippedSweeps,
		"last_sweep_at":       s.LastSweepAt,
		"last_sweep_duration": s.LastSweepDuration.String(),
		"last_overall":        string(s.LastOverall),
	}
}
