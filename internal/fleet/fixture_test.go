package fleet_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/fleet"
)

const fixtureYAML = `
vehicles:
  - id: v1
    make: Ford
    model: F-150
    year: 2023
    licensePlate: ABC123
    province: ON
    towingCapacityKg: 5000
    hitchClass: 3
    hasElectricBrakeController: true
  - id: v2
    make: Ram
    model: "3500"
    towingCapacityKg: 8000
    hitchClass: 4
    status: retired
trailers:
  - id: t1
    type: Enclosed
    serialNumber: SN-1
    province: ON
    requiredTowingCapacityKg: 3500
    requiredHitchClass: 3
    hasElectricBrakes: true
drivers:
  - id: d1
    employeeId: E001
    firstName: Jane
    lastName: Smith
    licenseExpiry: 2025-02-04
    status: suspended
documents:
  - id: doc1
    type: insurance
    expiryDate: 2025-01-20T12:00:00Z
    vehicleId: v1
  - id: doc2
    type: COMMERCIAL_PERMIT
    expiryDate: "2025-06-30"
    trailerId: t1
`

func TestParseFixture(t *testing.T) {
	records, err := fleet.ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	require.Len(t, records.Vehicles, 2)
	assert.Equal(t, "F-150", records.Vehicles[0].Model)
	assert.Equal(t, 2023, records.Vehicles[0].Year)
	assert.True(t, records.Vehicles[0].HasElectricBrakeController)
	assert.Equal(t, fleet.AssetActive, records.Vehicles[0].Status)
	assert.Equal(t, "3500", records.Vehicles[1].Model)
	assert.Equal(t, fleet.AssetRetired, records.Vehicles[1].Status)

	require.Len(t, records.Trailers, 1)
	assert.Equal(t, 3500, records.Trailers[0].RequiredTowingCapacityKg)

	require.Len(t, records.Drivers, 1)
	assert.Equal(t, compliance.DriverSuspended, records.Drivers[0].Status)
	assert.Equal(t, time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), records.Drivers[0].LicenseExpiry)

	require.Len(t, records.Documents, 2)
	assert.Equal(t, compliance.DocumentInsurance, records.Documents[0].Type)
	assert.Equal(t, time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC), records.Documents[0].ExpiryDate.UTC())
	assert.Equal(t, compliance.DocumentCommercialPermit, records.Documents[1].Type)
	assert.Equal(t, "t1", records.Documents[1].TrailerID)
}

func TestParseFixture_JSON(t *testing.T) {
	records, err := fleet.ParseFixture([]byte(`{
		"vehicles": [{"id": "v1", "make": "Ford", "model": "F-150", "towingCapacityKg": 5000, "hitchClass": 3}],
		"documents": [{"id": "doc1", "type": "INSPECTION", "expiryDate": "2025-03-01", "vehicleId": "v1"}]
	}`))
	require.NoError(t, err)

	require.Len(t, records.Vehicles, 1)
	require.Len(t, records.Documents, 1)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), records.Documents[0].ExpiryDate)
}

func TestParseFixture_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing id", "vehicles:\n  - make: Ford\n", "vehicle without id"},
		{"duplicate id", "trailers:\n  - id: t1\n  - id: t1\n", `duplicate trailer "t1"`},
		{"unknown document type", "documents:\n  - id: d\n    type: PASSPORT\n    expiryDate: 2025-01-01\n", "unknown type"},
		{"two owners", "documents:\n  - id: d\n    type: INSURANCE\n    expiryDate: 2025-01-01\n    vehicleId: v\n    trailerId: t\n", "owned by both"},
		{"bad date", "drivers:\n  - id: d1\n    licenseExpiry: next tuesday\n", "invalid date"},
		{"malformed", "vehicles: [", "parse fixture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fleet.ParseFixture([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFixtureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))

	records, err := fleet.LoadFixtureFile(path)
	require.NoError(t, err)
	assert.Len(t, records.Vehicles, 2)

	_, err = fleet.LoadFixtureFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
