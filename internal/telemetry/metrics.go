package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics counts rule engine evaluations. A nil *EngineMetrics is
// valid and records nothing.
type EngineMetrics struct {
	compatibilityChecks metric.Int64Counter
	complianceSweeps    metric.Int64Counter
	renewalAlerts       metric.Int64Counter
}

// NewEngineMetrics registers the engine instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	checks, err := meter.Int64Counter("fleetops.compatibility.checks",
		metric.WithDescription("Compatibility evaluations by result status"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	sweeps, err := meter.Int64Counter("fleetops.compliance.sweeps",
		metric.WithDescription("Fleet compliance evaluations by overall status"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, err
	}

	alerts, err := meter.Int64Counter("fleetops.compliance.alerts",
		metric.WithDescription("Renewal alerts produced by status band"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		compatibilityChecks: checks,
		complianceSweeps:    sweeps,
		renewalAlerts:       alerts,
	}, nil
}

// RecordCompatibilityCheck counts one compatibility evaluation.
func (m *EngineMetrics) RecordCompatibilityCheck(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.compatibilityChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordComplianceSweep counts one completed worker sweep.
func (m *EngineMetrics) RecordComplianceSweep(ctx context.Context, overall string) {
	if m == nil {
		return
	}
	m.complianceSweeps.Add(ctx, 1, metric.WithAttributes(attribute.String("overall", overall)))
}

// RecordRenewalAlerts counts n alerts in the given band.
func (m *EngineMetrics) RecordRenewalAlerts(ctx context.Context, band string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.renewalAlerts.Add(ctx, int64(n), metric.WithAttributes(attribute.String("band", band)))
}
