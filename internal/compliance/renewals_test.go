package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetops/internal/compliance"
)

var (
	truck = compliance.Vehicle{ID: "veh-1", Make: "Ford", Model: "F-250", LicensePlate: "ABCD 123", Province: "ON"}
	flat  = compliance.Trailer{ID: "trl-1", Type: "Flatbed", SerialNumber: "SN-998", Province: "AB"}
)

func TestDocumentRenewals(t *testing.T) {
	engine := newTestEngine()

	docs := []compliance.Document{
		{ID: "d1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(45), VehicleID: truck.ID, Vehicle: &truck},
		{ID: "d2", Type: compliance.DocumentCommercialPermit, ExpiryDate: daysFromNow(-3), TrailerID: flat.ID, Trailer: &flat},
		{ID: "d3", Type: compliance.DocumentRegistration, ExpiryDate: daysFromNow(91), VehicleID: truck.ID},
		{ID: "d4", Type: compliance.DocumentInspection, ExpiryDate: daysFromNow(1)},
		{ID: "d5", Type: compliance.DocumentRegistration, ExpiryDate: daysFromNow(90), VehicleID: "veh-404"},
	}

	alerts := engine.DocumentRenewals(docs)
	require.Len(t, alerts, 4)

	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"doc-d2", "doc-d4", "doc-d1", "doc-d5"}, ids)

	expired := alerts[0]
	assert.Equal(t, compliance.AlertDocument, expired.Type)
	assert.Equal(t, "Commercial Permit Renewal Required", expired.Title)
	assert.Equal(t, "Commercial Permit has expired", expired.Description)
	assert.Equal(t, "Renew immediately - asset may be out of compliance", expired.ActionRequired)
	assert.Equal(t, compliance.AssetTrailer, expired.AssetType)
	assert.Equal(t, "trl-1", expired.AssetID)
	assert.Equal(t, "Flatbed Trailer (SN-998)", expired.AssetName)
	assert.Equal(t, -3, expired.DaysUntilExpiry)
	assert.Equal(t, compliance.PriorityCritical, expired.Priority)
	assert.Equal(t, compliance.BandRed, expired.Status)
	assert.Equal(t, "d2", expired.DocumentID)

	orphan := alerts[1]
	assert.Equal(t, "Inspection expires in 1 day", orphan.Description)
	assert.Equal(t, compliance.AssetVehicle, orphan.AssetType)
	assert.Empty(t, orphan.AssetID)
	assert.Equal(t, "Unknown Asset", orphan.AssetName)

	insurance := alerts[2]
	assert.Equal(t, "Insurance expires in 45 days", insurance.Description)
	assert.Equal(t, "Schedule renewal for Insurance", insurance.ActionRequired)
	assert.Equal(t, "Ford F-250 (ABCD 123)", insurance.AssetName)
	assert.Equal(t, compliance.PriorityLow, insurance.Priority)
	assert.Equal(t, compliance.BandGreen, insurance.Status)

	unresolved := alerts[3]
	assert.Equal(t, "veh-404", unresolved.AssetID)
	assert.Equal(t, "Unknown Asset", unresolved.AssetName)
	assert.Equal(t, 90, unresolved.DaysUntilExpiry)
}

func TestDocumentRenewals_StableOrderForEqualDays(t *testing.T) {
	engine := newTestEngine()

	docs := []compliance.Document{
		{ID: "b", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(10)},
		{ID: "a", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(10)},
		{ID: "c", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(5)},
	}

	alerts := engine.DocumentRenewals(docs)
	require.Len(t, alerts, 3)
	assert.Equal(t, "doc-c", alerts[0].ID)
	assert.Equal(t, "doc-b", alerts[1].ID)
	assert.Equal(t, "doc-a", alerts[2].ID)
}

func TestDocumentRenewalsWithin(t *testing.T) {
	engine := newTestEngine()
	docs := []compliance.Document{
		{ID: "d1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(200)},
	}

	assert.Empty(t, engine.DocumentRenewals(docs))
	assert.Len(t, engine.DocumentRenewalsWithin(docs, 365), 1)
}

func TestDriverLicenseRenewals(t *testing.T) {
	engine := newTestEngine()

	drivers := []compliance.Driver{
		{ID: "drv-1", EmployeeID: "E100", FirstName: "Ada", LastName: "Lovelace", Status: compliance.DriverActive, LicenseExpiry: daysFromNow(20)},
		{ID: "drv-2", EmployeeID: "E200", FirstName: "Alan", LastName: "Turing", Status: compliance.DriverInactive, LicenseExpiry: daysFromNow(-10)},
		{ID: "drv-3", EmployeeID: "E300", FirstName: "Grace", LastName: "Hopper", Status: compliance.DriverActive, LicenseExpiry: daysFromNow(0)},
		{ID: "drv-4", EmployeeID: "E400", FirstName: "Edsger", LastName: "Dijkstra", Status: compliance.DriverActive, LicenseExpiry: daysFromNow(120)},
	}

	alerts := engine.DriverLicenseRenewals(drivers)
	require.Len(t, alerts, 2)

	assert.Equal(t, "license-drv-3", alerts[0].ID)
	assert.Equal(t, compliance.AlertLicense, alerts[0].Type)
	assert.Equal(t, "Driver License Renewal Required", alerts[0].Title)
	assert.Equal(t, "Driver license has expired", alerts[0].Description)
	assert.Equal(t, "Driver must renew license immediately - cannot operate vehicles", alerts[0].ActionRequired)
	assert.Equal(t, "Grace Hopper (E300)", alerts[0].AssetName)
	assert.Equal(t, compliance.AssetDriver, alerts[0].AssetType)

	assert.Equal(t, "license-drv-1", alerts[1].ID)
	assert.Equal(t, "Driver license expires in 20 days", alerts[1].Description)
	assert.Equal(t, "Schedule license renewal appointment", alerts[1].ActionRequired)
	assert.Equal(t, compliance.BandAmber, alerts[1].Status)
	assert.Equal(t, compliance.PriorityMedium, alerts[1].Priority)
	assert.Empty(t, alerts[1].DocumentID)
}

func TestRenewalFilters(t *testing.T) {
	engine := newTestEngine()

	docs := []compliance.Document{
		{ID: "d1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(-2)},
		{ID: "d2", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(7)},
		{ID: "d3", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(12)},
		{ID: "d4", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(25)},
		{ID: "d5", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(60)},
	}
	alerts := engine.Renewals(docs, nil)
	require.Len(t, alerts, 5)

	assert.Len(t, compliance.Upcoming(alerts, 30), 4)
	assert.Len(t, compliance.Upcoming(alerts, 0), 1)

	critical := compliance.Critical(alerts)
	require.Len(t, critical, 2)
	assert.Equal(t, "doc-d1", critical[0].ID)
	assert.Equal(t, "doc-d2", critical[1].ID)

	groups := compliance.GroupByPriority(alerts)
	assert.Len(t, groups.Critical, 1)
	assert.Len(t, groups.High, 2)
	assert.Len(t, groups.Medium, 1)
	assert.Len(t, groups.Low, 1)
	assert.Equal(t, alerts, groups.All)

	assert.Empty(t, compliance.Critical(nil))
	assert.NotNil(t, compliance.Upcoming(nil, 90))
}

func TestRenewals_DocumentsBeforeLicenses(t *testing.T) {
	engine := newTestEngine()

	docs := []compliance.Document{{ID: "d1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(40)}}
	drivers := []compliance.Driver{{ID: "drv-1", Status: compliance.DriverActive, LicenseExpiry: daysFromNow(-1)}}

	alerts := engine.Renewals(docs, drivers)
	require.Len(t, alerts, 2)
	assert.Equal(t, "doc-d1", alerts[0].ID)
	assert.Equal(t, "license-drv-1", alerts[1].ID)
}

func TestRenewals_Idempotent(t *testing.T) {
	engine := newTestEngine()
	docs := []compliance.Document{
		{ID: "d1", Type: compliance.DocumentInsurance, ExpiryDate: daysFromNow(40), VehicleID: truck.ID, Vehicle: &truck},
		{ID: "d2", Type: compliance.DocumentInspection, ExpiryDate: daysFromNow(2)},
	}

	assert.Equal(t, engine.Renewals(docs, nil), engine.Renewals(docs, nil))
}
