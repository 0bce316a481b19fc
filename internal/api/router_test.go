package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/zoobzio/clockz"

	"github.com/fleetops/fleetops/internal/api"
	"github.com/fleetops/fleetops/internal/api/models"
	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/export"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/resilience"
)

var testNow = time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

// testFleet is evaluated at testNow:
//   - v1 ON red (insurance in 5 days), v2 AB green, v3 retired
//   - t1 ON green (inspection in 45 days), t2 AB red (registration expired)
//   - d1 active amber (license in 20 days), d2 inactive
const testFleet = `
vehicles:
  - {id: v1, make: Ford, model: F-150, year: 2023, licensePlate: ABC123, province: ON, towingCapacityKg: 5000, hitchClass: 3, hasElectricBrakeController: true}
  - {id: v2, make: Ram, model: "3500", year: 2024, licensePlate: XYZ789, province: AB, towingCapacityKg: 8000, hitchClass: 4, hasElectricBrakeController: true}
  - {id: v3, make: Toyota, model: Tacoma, year: 2016, licensePlate: OLD001, province: ON, towingCapacityKg: 2900, hitchClass: 3, status: retired}
trailers:
  - {id: t1, type: Enclosed, serialNumber: SN-1, province: ON, requiredTowingCapacityKg: 3500, requiredHitchClass: 3, hasElectricBrakes: true, requiresElectricBrakeController: true}
  - {id: t2, type: Flatdeck, serialNumber: SN-2, province: AB, requiredTowingCapacityKg: 6000, requiredHitchClass: 4, hasElectricBrakes: true, requiresElectricBrakeController: true}
drivers:
  - {id: d1, employeeId: E001, firstName: Jane, lastName: Smith, licenseExpiry: 2025-02-04, province: ON}
  - {id: d2, employeeId: E002, firstName: Bob, lastName: Lee, licenseExpiry: 2024-12-06, province: ON, status: inactive}
documents:
  - {id: doc1, type: INSURANCE, expiryDate: 2025-01-20, vehicleId: v1}
  - {id: doc2, type: REGISTRATION, expiryDate: 2025-08-03, vehicleId: v1}
  - {id: doc3, type: INSPECTION, expiryDate: 2025-03-01, trailerId: t1}
  - {id: doc4, type: REGISTRATION, expiryDate: 2025-01-12, trailerId: t2}
  - {id: doc5, type: INSURANCE, expiryDate: 2025-01-25, vehicleId: v3}
`

// unreachableRepository fails readiness pings.
type unreachableRepository struct {
	*fleet.InMemoryRepository
}

func (unreachableRepository) Ping(context.Context) error {
	return errors.New("connection refused")
}

type testEnv struct {
	router  http.Handler
	flags   *featureflags.Service
	service *fleet.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	records, err := fleet.ParseFixture([]byte(testFleet))
	require.NoError(t, err)
	repo := fleet.NewInMemoryRepository()
	repo.Load(records)
	return newTestEnvWithRepo(t, repo)
}

func newTestEnvWithRepo(t *testing.T, repo fleet.Repository) *testEnv {
	t.Helper()

	clock := clockz.NewFakeClockAt(testNow)
	logger := zerolog.New(io.Discard)

	resilient := fleet.NewResilientRepository(repo, resilience.DefaultGuardConfig("fleet-store"))
	registry := resilience.NewRegistry()
	registry.Register(resilient.Guard())

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
		Clock:      clock,
	})
	service := fleet.NewService(fleet.ServiceConfig{
		Repository: resilient,
		Logger:     logger,
		Clock:      clock,
		Flags:      flags,
	})

	return &testEnv{
		router: api.NewRouter(api.RouterConfig{
			Version:            "test",
			BuildTime:          "2025-01-01T00:00:00Z",
			Logger:             logger,
			FleetService:       service,
			FeatureFlagService: flags,
			Registry:           registry,
		}),
		flags:   flags,
		service: service,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var problem models.Problem
	decode(t, w, &problem)
	assert.NotEmpty(t, problem.TraceID)
	return problem
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var health models.Health
	decode(t, w, &health)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "2025-01-01T00:00:00Z", health.BuildTime)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestEnvWithRepo(t, unreachableRepository{fleet.NewInMemoryRepository()})
	w = down.do(t, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	problem := decodeProblem(t, w)
	assert.Contains(t, problem.Detail, "connection refused")
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.flags.SetFlag(context.Background(), featureflags.FlagDisableProvincialRules, true))

	w := env.do(t, http.MethodGet, "/v1/ops/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	decode(t, w, &status)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "fleet-store", status.Subsystems[0].Name)
	require.Len(t, status.Dependencies, 1)
	assert.Equal(t, "closed", status.Dependencies[0].CircuitState)
	assert.Equal(t, []string{featureflags.FlagDisableProvincialRules}, status.ActiveDegradationFlags)
}

func TestRouter_CheckCompatibility(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compatibility?vehicleId=v1&trailerId=t1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report fleet.CompatibilityReport
	decode(t, w, &report)
	assert.Equal(t, compatibility.StatusPass, report.Compatibility.Status)
	assert.Equal(t, 1500, report.Compatibility.CapacityMarginKg)
	assert.Equal(t, "ON", report.Province)
	assert.Equal(t, "2023 Ford F-150", report.VehicleName)
	assert.Equal(t, []string{"Ontario: Electric brakes required for trailers over 1,360kg"}, report.ProvincialRequirements)
	assert.NotEmpty(t, report.CheckID)

	w = env.do(t, http.MethodGet, "/v1/compatibility?vehicleId=v1&trailerId=t2&province=ab", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &report)
	assert.Equal(t, compatibility.StatusFail, report.Compatibility.Status)
	assert.Equal(t, "AB", report.Province)
	assert.Equal(t, "Not Compatible", report.Display.Title)

	w = env.do(t, http.MethodGet, "/v1/compatibility/history?vehicleId=v1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history models.CompatibilityHistory
	decode(t, w, &history)
	require.Len(t, history.Items, 2)
	assert.Equal(t, "t2", history.Items[0].TrailerID)
	assert.Equal(t, fleet.DefaultHistoryLimit, history.Meta.Limit)
	assert.Equal(t, 2, history.Meta.Count)
}

func TestRouter_CheckCompatibility_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		path     string
		status   int
		wantType string
	}{
		{"missing trailer", "/v1/compatibility?vehicleId=v1", http.StatusBadRequest, models.ProblemTypeValidation},
		{"missing vehicle", "/v1/compatibility?trailerId=t1", http.StatusBadRequest, models.ProblemTypeValidation},
		{"unknown vehicle", "/v1/compatibility?vehicleId=nope&trailerId=t1", http.StatusNotFound, models.ProblemTypeNotFound},
		{"unknown trailer", "/v1/compatibility?vehicleId=v1&trailerId=nope", http.StatusNotFound, models.ProblemTypeNotFound},
		{"bad history limit", "/v1/compatibility/history?limit=0", http.StatusBadRequest, models.ProblemTypeValidation},
		{"history limit too large", "/v1/compatibility/history?limit=500", http.StatusBadRequest, models.ProblemTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			problem := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestRouter_Evaluate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/compatibility/evaluate", models.EvaluateRequest{
		Vehicle:  models.VehicleInput{ID: "rental", Make: "GMC", Model: "Sierra", Year: 2022, TowingCapacityKg: 4000, HitchClass: 3},
		Trailer:  models.TrailerInput{ID: "boat", Type: "Boat", RequiredTowingCapacityKg: 3900, RequiredHitchClass: 3},
		Province: "QC",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report fleet.CompatibilityReport
	decode(t, w, &report)
	assert.Equal(t, compatibility.StatusWarning, report.Compatibility.Status)
	assert.Equal(t, 100, report.Compatibility.CapacityMarginKg)
	assert.Equal(t, "QC", report.Province)
	assert.Empty(t, report.CheckID)

	// Ad-hoc evaluations are not stored.
	w = env.do(t, http.MethodGet, "/v1/compatibility/history", nil)
	var history models.CompatibilityHistory
	decode(t, w, &history)
	assert.Empty(t, history.Items)
}

func TestRouter_Evaluate_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/compatibility/evaluate", models.EvaluateRequest{
		Vehicle: models.VehicleInput{TowingCapacityKg: 0, HitchClass: 3},
		Trailer: models.TrailerInput{RequiredTowingCapacityKg: 1000},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "vehicle.towingCapacityKg", problem.Errors[0].Field)
	assert.Equal(t, "REQUIRED", problem.Errors[0].Code)

	w = env.do(t, http.MethodPost, "/v1/compatibility/evaluate", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/compatibility/evaluate", strings.NewReader("vehicle=v1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, models.ProblemTypeUnsupportedType, decodeProblem(t, rec).Type)
}

func TestRouter_BestMatches(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/compatibility/best-matches", models.BestMatchesRequest{TrailerID: "t1"})
	require.Equal(t, http.StatusOK, w.Code)

	var report fleet.MatchReport
	decode(t, w, &report)
	require.Len(t, report.Matches, 2)
	assert.Equal(t, 2, report.TotalCompatibleVehicles)
	assert.Equal(t, "v1", report.Matches[0].Vehicle.ID)

	w = env.do(t, http.MethodPost, "/v1/compatibility/best-matches", models.BestMatchesRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "trailerId", problem.Errors[0].Field)

	w = env.do(t, http.MethodPost, "/v1/compatibility/best-matches", models.BestMatchesRequest{TrailerID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ComplianceStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compliance/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report fleet.FleetStatusReport
	decode(t, w, &report)
	assert.Equal(t, compliance.OverallCritical, report.Overall)
	assert.Equal(t, 5, report.TotalAssets)
	assert.Equal(t, 1, report.ExpiredDocuments)
	assert.Equal(t, 3, report.ExpiringDocuments)
	assert.Nil(t, report.Detailed)

	w = env.do(t, http.MethodGet, "/v1/compliance/status?detailed=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report = fleet.FleetStatusReport{}
	decode(t, w, &report)
	require.NotNil(t, report.Detailed)
	assert.Len(t, report.Detailed.ProvinceBreakdown, 2)
	assert.Equal(t, 1, report.Detailed.AssetTypeBreakdown.Drivers.Warning)
}

func TestRouter_AssetStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compliance/status?assetId=v1&assetType=vehicle&detailed=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report fleet.AssetStatusReport
	decode(t, w, &report)
	assert.Equal(t, compliance.AssetVehicle, report.AssetType)
	assert.Equal(t, "Ford F-150 (ABC123)", report.AssetName)
	assert.Equal(t, compliance.OverallCritical, report.Compliance.Overall)
	require.NotNil(t, report.Detailed)
	assert.Len(t, report.Detailed.ProvincialValidation, 4)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing asset type", "/v1/compliance/status?assetId=v1", http.StatusBadRequest},
		{"unknown asset type", "/v1/compliance/status?assetId=v1&assetType=boat", http.StatusBadRequest},
		{"bad detailed flag", "/v1/compliance/status?detailed=maybe", http.StatusBadRequest},
		{"unknown driver", "/v1/compliance/status?assetId=zz&assetType=DRIVER", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			decodeProblem(t, w)
		})
	}
}

func TestRouter_Renewals(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compliance/renewals?days=30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var groups compliance.PriorityGroups
	decode(t, w, &groups)
	assert.Len(t, groups.All, 4)
	require.Len(t, groups.Critical, 1)
	assert.Equal(t, "doc-doc4", groups.Critical[0].ID)
	assert.NotNil(t, groups.Low)

	w = env.do(t, http.MethodGet, "/v1/compliance/renewals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups = compliance.PriorityGroups{}
	decode(t, w, &groups)
	assert.Len(t, groups.All, 5)

	w = env.do(t, http.MethodGet, "/v1/compliance/renewals?filter=critical", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var critical []compliance.RenewalAlert
	decode(t, w, &critical)
	require.Len(t, critical, 2)
	assert.Equal(t, "doc-doc4", critical[0].ID)
	assert.Equal(t, "doc-doc1", critical[1].ID)

	w = env.do(t, http.MethodGet, "/v1/compliance/renewals?filter=timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var timeline []compliance.TimelineMonth
	decode(t, w, &timeline)
	require.Len(t, timeline, compliance.TimelineMonths)
	assert.Equal(t, "January 2025", timeline[0].Month)
	assert.Len(t, timeline[0].Renewals, 3)

	w = env.do(t, http.MethodGet, "/v1/compliance/renewals?filter=overdue", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, days := range []string{"-1", "0", "soon"} {
		w = env.do(t, http.MethodGet, "/v1/compliance/renewals?days="+days, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "days=%s", days)
		problem := decodeProblem(t, w)
		require.Len(t, problem.Errors, 1)
		assert.Equal(t, "days", problem.Errors[0].Field)
	}
}

func TestRouter_TimelineWorkbook(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compliance/timeline.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=renewal-timeline-2025-01-15.xlsx", w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(export.TimelineSheet)
	require.NoError(t, err)
	require.Len(t, rows, compliance.TimelineMonths+1)
	assert.Equal(t, "January 2025", rows[1][0])
}

func TestRouter_Requirements(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/compliance/requirements/on", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ProvinceRequirements
	decode(t, w, &resp)
	assert.Equal(t, "ON", resp.Province)
	assert.Len(t, resp.Requirements, 4)

	w = env.do(t, http.MethodGet, "/v1/compliance/requirements/QC", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeProblem(t, w).Detail, "AB, BC, ON")
}

func TestRouter_FeatureFlags(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/admin/feature-flags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list featureflags.FlagList
	decode(t, w, &list)
	require.Len(t, list.Items, 4)
	assert.Equal(t, featureflags.FlagTimelineLegacyHorizon, list.Items[0].Key)

	w = env.do(t, http.MethodPut, "/v1/admin/feature-flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagDisableCompatibilityHistory, Value: true}},
		Reason:  "history table migration",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.flags.IsCompatibilityHistoryDisabled(context.Background()))

	// History is no longer written.
	w = env.do(t, http.MethodGet, "/v1/compatibility?vehicleId=v1&trailerId=t1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report fleet.CompatibilityReport
	decode(t, w, &report)
	assert.Empty(t, report.CheckID)

	w = env.do(t, http.MethodPut, "/v1/admin/feature-flags", featureflags.FlagUpdateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decodeProblem(t, w).Errors, 2)

	w = env.do(t, http.MethodPut, "/v1/admin/feature-flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: "enable_autopilot", Value: true}},
		Reason:  "typo",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeProblem(t, w).Detail, "unknown feature flag")

	w = env.do(t, http.MethodPost, "/v1/admin/feature-flags/invalidate", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
