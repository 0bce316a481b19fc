package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fleetops/fleetops/internal/telemetry"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestEngineMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := telemetry.NewEngineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordCompatibilityCheck(ctx, "PASS")
	metrics.RecordCompatibilityCheck(ctx, "FAIL")
	metrics.RecordComplianceSweep(ctx, "warning")
	metrics.RecordRenewalAlerts(ctx, "red", 3)
	metrics.RecordRenewalAlerts(ctx, "amber", 0)

	totals := collect(t, reader)
	assert.Equal(t, int64(2), totals["fleetops.compatibility.checks"])
	assert.Equal(t, int64(1), totals["fleetops.compliance.sweeps"])
	assert.Equal(t, int64(3), totals["fleetops.compliance.alerts"])
}

func TestEngineMetrics_NilIsNoop(t *testing.T) {
	var metrics *telemetry.EngineMetrics

	assert.NotPanics(t, func() {
		metrics.RecordCompatibilityCheck(context.Background(), "PASS")
		metrics.RecordComplianceSweep(context.Background(), "compliant")
		metrics.RecordRenewalAlerts(context.Background(), "red", 1)
	})
}
