package fleet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/telemetry"
)

var testNow = time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

func daysFromNow(days int) time.Time {
	return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

// testRecords is a small mixed fleet:
//   - v1 ON, red (insurance in 5 days); v2 AB, green; v3 retired
//   - t1 ON, green (inspection in 45 days); t2 AB, red (registration expired)
//   - d1 active, amber (license in 20 days); d2 inactive, expired license
func testRecords() fleet.Records {
	return fleet.Records{
		Vehicles: []*fleet.Vehicle{
			{ID: "v1", Make: "Ford", Model: "F-150", Year: 2023, LicensePlate: "ABC123", Province: "ON", TowingCapacityKg: 5000, HitchClass: 3, HasElectricBrakeController: true, Status: fleet.AssetActive},
			{ID: "v2", Make: "Ram", Model: "3500", Year: 2024, LicensePlate: "XYZ789", Province: "AB", TowingCapacityKg: 8000, HitchClass: 4, HasElectricBrakeController: true, Status: fleet.AssetActive},
			{ID: "v3", Make: "Toyota", Model: "Tacoma", Year: 2016, LicensePlate: "OLD001", Province: "ON", TowingCapacityKg: 2900, HitchClass: 3, Status: fleet.AssetRetired},
		},
		Trailers: []*fleet.Trailer{
			{ID: "t1", Type: "Enclosed", SerialNumber: "SN-1", Province: "ON", RequiredTowingCapacityKg: 3500, RequiredHitchClass: 3, HasElectricBrakes: true, RequiresElectricBrakeController: true, Status: fleet.AssetActive},
			{ID: "t2", Type: "Flatdeck", SerialNumber: "SN-2", Province: "AB", RequiredTowingCapacityKg: 6000, RequiredHitchClass: 4, HasElectricBrakes: true, RequiresElectricBrakeController: true, Status: fleet.AssetActive},
		},
		Drivers: []*fleet.Driver{
			{ID: "d1", EmployeeID: "E001", FirstName: "Jane", LastName: "Smith", LicenseExpiry: daysFromNow(20), Province: "ON", Status: compliance.DriverActive},
			{ID: "d2", EmployeeID: "E002", FirstName: "Bob", LastName: "Lee", LicenseExpiry: daysFromNow(-40), Province: "ON", Status: compliance.DriverInactive},
		},
		Documents: []*fleet.Document{
			{ID: "doc1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(5), VehicleID: "v1"},
			{ID: "doc2", Type: compliance.DocumentRegistration, ExpiryDate: daysFromNow(200), VehicleID: "v1"},
			{ID: "doc3", Type: compliance.DocumentInspection, ExpiryDate: daysFromNow(45), TrailerID: "t1"},
			{ID: "doc4", Type: compliance.DocumentRegistration, ExpiryDate: daysFromNow(-3), TrailerID: "t2"},
			{ID: "doc5", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(10), VehicleID: "v3"},
		},
	}
}

type testEnv struct {
	repo    *fleet.InMemoryRepository
	flags   *featureflags.Service
	service *fleet.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := clockz.NewFakeClockAt(testNow)
	repo := fleet.NewInMemoryRepository()
	repo.Load(testRecords())

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Clock:      clock,
	})

	return &testEnv{
		repo:  repo,
		flags: flags,
		service: fleet.NewService(fleet.ServiceConfig{
			Repository: repo,
			Logger:     zerolog.Nop(),
			Clock:      clock,
			Flags:      flags,
		}),
	}
}

func (e *testEnv) enable(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, e.flags.SetFlag(context.Background(), key, true))
}

type failingSaveRepository struct {
	*fleet.InMemoryRepository
}

func (failingSaveRepository) SaveCompatibilityCheck(context.Context, *fleet.CompatibilityCheck) error {
	return errors.New("disk full")
}

func TestService_CheckCompatibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.service.CheckCompatibility(ctx, "v1", "t1", "")
	require.NoError(t, err)

	assert.Equal(t, "ON", report.Province)
	assert.Equal(t, "2023 Ford F-150", report.VehicleName)
	assert.Equal(t, compatibility.StatusPass, report.Compatibility.Status)
	assert.True(t, report.Compatibility.CanTow)
	assert.Equal(t, 1500, report.Compatibility.CapacityMarginKg)
	assert.Equal(t, []string{"Ontario: Electric brakes required for trailers over 1,360kg"}, report.ProvincialRequirements)
	assert.Equal(t, "Compatible", report.Display.Title)
	assert.Equal(t, "1500kg margin available", report.Display.Subtitle)
	assert.Equal(t, testNow, report.CheckedAt)
	require.NotEmpty(t, report.CheckID)

	history, err := env.service.CompatibilityHistory(ctx, fleet.CheckFilter{VehicleID: "v1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, report.CheckID, history[0].ID)
	assert.Equal(t, "ON", history[0].Province)
	assert.Equal(t, compatibility.StatusPass, history[0].Status)
}

func TestService_CheckCompatibility_Fail(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.CheckCompatibility(context.Background(), "v1", "t2", "AB")
	require.NoError(t, err)

	assert.Equal(t, compatibility.StatusFail, report.Compatibility.Status)
	assert.False(t, report.Compatibility.CanTow)
	assert.Equal(t, -1000, report.Compatibility.CapacityMarginKg)
	assert.Contains(t, report.Recommendations, "Upgrade to a vehicle with at least 1200kg more towing capacity")
	assert.Contains(t, report.Recommendations, "Consider lighter trailer alternatives")
	assert.Equal(t, []string{"Alberta: Breakaway brakes required for trailers over 2,000kg"}, report.ProvincialRequirements)
	assert.Equal(t, "Not Compatible", report.Display.Title)
}

func TestService_CheckCompatibility_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CheckCompatibility(ctx, "missing", "t1", "ON")
	assert.ErrorIs(t, err, fleet.ErrVehicleNotFound)

	_, err = env.service.CheckCompatibility(ctx, "v1", "missing", "ON")
	assert.ErrorIs(t, err, fleet.ErrTrailerNotFound)
}

func TestService_CheckCompatibility_HistoryDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.enable(t, featureflags.FlagDisableCompatibilityHistory)
	ctx := context.Background()

	report, err := env.service.CheckCompatibility(ctx, "v1", "t1", "ON")
	require.NoError(t, err)
	assert.Empty(t, report.CheckID)

	history, err := env.service.CompatibilityHistory(ctx, fleet.CheckFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestService_CheckCompatibility_ProvincialRulesDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.enable(t, featureflags.FlagDisableProvincialRules)

	report, err := env.service.CheckCompatibility(context.Background(), "v1", "t1", "ON")
	require.NoError(t, err)
	assert.Empty(t, report.ProvincialRequirements)
	assert.NotNil(t, report.ProvincialRequirements)
}

func TestService_CheckCompatibility_SaveFailureIsNotFatal(t *testing.T) {
	repo := fleet.NewInMemoryRepository()
	repo.Load(testRecords())
	svc := fleet.NewService(fleet.ServiceConfig{
		Repository: failingSaveRepository{repo},
		Logger:     zerolog.Nop(),
		Clock:      clockz.NewFakeClockAt(testNow),
	})

	report, err := svc.CheckCompatibility(context.Background(), "v1", "t1", "ON")
	require.NoError(t, err)
	assert.Empty(t, report.CheckID)
	assert.Equal(t, compatibility.StatusPass, report.Compatibility.Status)
}

func TestService_Evaluate_InvalidCapacity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Evaluate(context.Background(),
		compatibility.Vehicle{ID: "v", TowingCapacityKg: 0, HitchClass: 3},
		compatibility.Trailer{ID: "t", RequiredTowingCapacityKg: 1000, RequiredHitchClass: 2},
		"ON",
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, compatibility.ErrInvalidInput)
	assert.True(t, fleet.IsInputError(err))
}

func TestService_BestMatches_ActiveVehiclesOnly(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.BestMatches(context.Background(), "t1", 0)
	require.NoError(t, err)

	// v3 is retired and would fail anyway; v1 and v2 can both tow t1.
	require.Len(t, report.Matches, 2)
	assert.Equal(t, 2, report.TotalCompatibleVehicles)
	assert.Equal(t, "v1", report.Matches[0].Vehicle.ID)
	assert.Equal(t, "v2", report.Matches[1].Vehicle.ID)
	assert.Equal(t, "t1", report.Trailer.ID)

	for _, m := range report.Matches {
		assert.NotEqual(t, "v3", m.Vehicle.ID)
	}
}

func TestService_BestMatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.service.BestMatches(ctx, "t2", 5)
	require.NoError(t, err)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, "v2", report.Matches[0].Vehicle.ID)
	assert.InDelta(t, 0.75, report.Matches[0].CapacityUtilization, 1e-9)

	_, err = env.service.BestMatches(ctx, "missing", 5)
	assert.ErrorIs(t, err, fleet.ErrTrailerNotFound)
}

func TestService_FleetStatus(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.FleetStatus(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, compliance.OverallCritical, report.Overall)
	assert.Equal(t, 5, report.TotalAssets)
	assert.Equal(t, 2, report.CompliantAssets)
	assert.Equal(t, 1, report.WarningAssets)
	assert.Equal(t, 2, report.CriticalAssets)
	assert.Equal(t, 1, report.ExpiredDocuments)
	assert.Equal(t, 3, report.ExpiringDocuments)
	assert.Len(t, report.UpcomingRenewals, 5)
	assert.Nil(t, report.Detailed)
}

func TestService_FleetStatus_NotCountedAsSweep(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewEngineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	repo := fleet.NewInMemoryRepository()
	repo.Load(testRecords())
	svc := fleet.NewService(fleet.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		Clock:      clockz.NewFakeClockAt(testNow),
		Metrics:    metrics,
	})

	_, err = svc.FleetStatus(context.Background(), true)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			assert.NotEqual(t, "fleetops.compliance.sweeps", m.Name)
		}
	}
}

func TestService_FleetStatus_Detailed(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.FleetStatus(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, report.Detailed)

	breakdown := report.Detailed.AssetTypeBreakdown
	assert.Equal(t, compliance.BandCounts{Total: 2, Compliant: 1, Critical: 1}, breakdown.Vehicles)
	assert.Equal(t, compliance.BandCounts{Total: 2, Compliant: 1, Critical: 1}, breakdown.Trailers)
	assert.Equal(t, compliance.BandCounts{Total: 1, Warning: 1}, breakdown.Drivers)

	provinces := report.Detailed.ProvinceBreakdown
	require.Len(t, provinces, 2)
	assert.Equal(t, "AB", provinces[0].Province)
	assert.Equal(t, compliance.OverallCritical, provinces[0].Status.Overall)
	assert.Equal(t, 1, provinces[0].Status.ExpiredDocuments)
	assert.Len(t, provinces[0].Requirements, 3)

	assert.Equal(t, "ON", provinces[1].Province)
	assert.Equal(t, 3, provinces[1].Status.TotalAssets)
	// The retired vehicle's insurance still counts as an expiring document.
	assert.Equal(t, 3, provinces[1].Status.ExpiringDocuments)
	assert.Len(t, provinces[1].Requirements, 4)
}

func TestService_AssetStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		id          string
		assetType   compliance.AssetType
		wantName    string
		wantOverall compliance.Overall
		wantTotal   int
	}{
		{"vehicle", "v1", compliance.AssetVehicle, "Ford F-150 (ABC123)", compliance.OverallCritical, 1},
		{"trailer", "t1", compliance.AssetTrailer, "Enclosed Trailer (SN-1)", compliance.OverallCompliant, 1},
		{"active driver", "d1", compliance.AssetDriver, "Jane Smith", compliance.OverallWarning, 1},
		{"inactive driver", "d2", compliance.AssetDriver, "Bob Lee", compliance.OverallCompliant, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := env.service.AssetStatus(ctx, tt.id, tt.assetType, false)
			require.NoError(t, err)

			assert.Equal(t, tt.id, report.AssetID)
			assert.Equal(t, tt.assetType, report.AssetType)
			assert.Equal(t, tt.wantName, report.AssetName)
			assert.Equal(t, tt.wantOverall, report.Compliance.Overall)
			assert.Equal(t, tt.wantTotal, report.Compliance.TotalAssets)
			assert.Nil(t, report.Detailed)
		})
	}
}

func TestService_AssetStatus_Detailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.service.AssetStatus(ctx, "v1", compliance.AssetVehicle, true)
	require.NoError(t, err)
	require.NotNil(t, report.Detailed)

	assert.Equal(t, "ON", report.Detailed.Province)
	assert.Len(t, report.Detailed.Documents, 2)

	validation := report.Detailed.ProvincialValidation
	require.Len(t, validation, 4)
	got := map[compliance.DocumentType]bool{}
	for _, v := range validation {
		got[v.Requirement.DocumentType] = v.HasValidDocument
	}
	assert.Equal(t, map[compliance.DocumentType]bool{
		compliance.DocumentRegistration:     true,
		compliance.DocumentInsurance:        true,
		compliance.DocumentInspection:       false,
		compliance.DocumentCommercialPermit: false,
	}, got)

	driver, err := env.service.AssetStatus(ctx, "d1", compliance.AssetDriver, true)
	require.NoError(t, err)
	assert.Empty(t, driver.Detailed.ProvincialValidation)
	assert.Empty(t, driver.Detailed.Documents)
}

func TestService_AssetStatus_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.AssetStatus(ctx, "zzz", compliance.AssetType("BOAT"), false)
	assert.ErrorIs(t, err, fleet.ErrUnknownAssetType)
	assert.True(t, fleet.IsInputError(err))

	_, err = env.service.AssetStatus(ctx, "missing", compliance.AssetDriver, false)
	assert.ErrorIs(t, err, fleet.ErrDriverNotFound)
	assert.True(t, fleet.IsNotFound(err))
}

func TestService_UpcomingRenewals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	groups, err := env.service.UpcomingRenewals(ctx, 30)
	require.NoError(t, err)

	assert.Len(t, groups.All, 4)
	require.Len(t, groups.Critical, 1)
	assert.Equal(t, "doc-doc4", groups.Critical[0].ID)
	assert.Len(t, groups.High, 2)
	require.Len(t, groups.Medium, 1)
	assert.Equal(t, "license-d1", groups.Medium[0].ID)
	assert.Empty(t, groups.Low)

	wide, err := env.service.UpcomingRenewals(ctx, 365)
	require.NoError(t, err)
	assert.Len(t, wide.All, 6)
	require.Len(t, wide.Low, 2)
	assert.Equal(t, "doc-doc3", wide.Low[0].ID)
	assert.Equal(t, "doc-doc2", wide.Low[1].ID)

	def, err := env.service.UpcomingRenewals(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, def.All, 5)
}

func TestService_CriticalRenewals(t *testing.T) {
	env := newTestEnv(t)

	alerts, err := env.service.CriticalRenewals(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"doc-doc4", "doc-doc1"}, ids)
}

func TestService_RenewalTimeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	timeline, err := env.service.RenewalTimeline(ctx)
	require.NoError(t, err)
	require.Len(t, timeline, compliance.TimelineMonths)

	assert.Equal(t, "January 2025", timeline[0].Month)
	assert.Len(t, timeline[0].Renewals, 3)
	assert.Len(t, timeline[1].Renewals, 1)
	assert.Len(t, timeline[2].Renewals, 1)
	require.Len(t, timeline[7].Renewals, 1)
	assert.Equal(t, "August 2025", timeline[7].Month)
	assert.Equal(t, "doc-doc2", timeline[7].Renewals[0].ID)
}

func TestService_RenewalTimeline_LegacyHorizon(t *testing.T) {
	env := newTestEnv(t)
	env.enable(t, featureflags.FlagTimelineLegacyHorizon)

	timeline, err := env.service.RenewalTimeline(context.Background())
	require.NoError(t, err)
	require.Len(t, timeline, compliance.TimelineMonths)
	assert.Empty(t, timeline[7].Renewals)
}

func TestService_Ready(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.service.Ready(context.Background()))
}
