package compliance

import (
	"fmt"
	"sort"
)

const unknownAssetName = "Unknown Asset"

// DocumentRenewals returns alerts for documents expired or expiring within
// RenewalHorizonDays, most urgent first.
func (e *Engine) DocumentRenewals(documents []Document) []RenewalAlert {
	return e.DocumentRenewalsWithin(documents, RenewalHorizonDays)
}

// DocumentRenewalsWithin is DocumentRenewals with an explicit horizon.
func (e *Engine) DocumentRenewalsWithin(documents []Document, horizonDays int) []RenewalAlert {
	now := e.clock.Now()
	alerts := make([]RenewalAlert, 0, len(documents))

	for _, doc := range documents {
		days := DaysBetween(doc.ExpiryDate, now)
		if days > horizonDays {
			continue
		}

		assetType, assetID, assetName := documentOwner(doc)
		typeName := doc.Type.DisplayName()

		alert := RenewalAlert{
			ID:              "doc-" + doc.ID,
			Type:            AlertDocument,
			Title:           typeName + " Renewal Required",
			AssetType:       assetType,
			AssetID:         assetID,
			AssetName:       assetName,
			ExpiryDate:      doc.ExpiryDate,
			DaysUntilExpiry: days,
			Priority:        ClassifyPriority(days),
			Status:          ClassifyStatus(days),
			DocumentID:      doc.ID,
		}
		if days <= 0 {
			alert.Description = typeName + " has expired"
			alert.ActionRequired = "Renew immediately - asset may be out of compliance"
		} else {
			alert.Description = fmt.Sprintf("%s expires in %s", typeName, pluralDays(days))
			alert.ActionRequired = "Schedule renewal for " + typeName
		}

		alerts = append(alerts, alert)
	}

	sortByUrgency(alerts)
	return alerts
}

// DriverLicenseRenewals returns alerts for active drivers whose license is
// expired or expiring within RenewalHorizonDays, most urgent first.
func (e *Engine) DriverLicenseRenewals(drivers []Driver) []RenewalAlert {
	return e.DriverLicenseRenewalsWithin(drivers, RenewalHorizonDays)
}

// DriverLicenseRenewalsWithin is DriverLicenseRenewals with an explicit horizon.
func (e *Engine) DriverLicenseRenewalsWithin(drivers []Driver, horizonDays int) []RenewalAlert {
	now := e.clock.Now()
	alerts := make([]RenewalAlert, 0, len(drivers))

	for _, driver := range drivers {
		if driver.Status != DriverActive {
			continue
		}

		days := DaysBetween(driver.LicenseExpiry, now)
		if days > horizonDays {
			continue
		}

		alert := RenewalAlert{
			ID:              "license-" + driver.ID,
			Type:            AlertLicense,
			Title:           "Driver License Renewal Required",
			AssetType:       AssetDriver,
			AssetID:         driver.ID,
			AssetName:       driver.DisplayName(),
			ExpiryDate:      driver.LicenseExpiry,
			DaysUntilExpiry: days,
			Priority:        ClassifyPriority(days),
			Status:          ClassifyStatus(days),
		}
		if days <= 0 {
			alert.Description = "Driver license has expired"
			alert.ActionRequired = "Driver must renew license immediately - cannot operate vehicles"
		} else {
			alert.Description = "Driver license expires in " + pluralDays(days)
			alert.ActionRequired = "Schedule license renewal appointment"
		}

		alerts = append(alerts, alert)
	}

	sortByUrgency(alerts)
	return alerts
}

// Renewals returns document renewals followed by license renewals.
func (e *Engine) Renewals(documents []Document, drivers []Driver) []RenewalAlert {
	return e.renewalsWithin(documents, drivers, RenewalHorizonDays)
}

func (e *Engine) renewalsWithin(documents []Document, drivers []Driver, horizonDays int) []RenewalAlert {
	docs := e.DocumentRenewalsWithin(documents, horizonDays)
	licenses := e.DriverLicenseRenewalsWithin(drivers, horizonDays)
	return append(docs, licenses...)
}

// Upcoming returns the alerts expiring within days, including expired ones.
func Upcoming(alerts []RenewalAlert, days int) []RenewalAlert {
	out := []RenewalAlert{}
	for _, a := range alerts {
		if a.DaysUntilExpiry <= days {
			out = append(out, a)
		}
	}
	return out
}

// Critical returns the alerts that are expired, due within a week, or red.
func Critical(alerts []RenewalAlert) []RenewalAlert {
	out := []RenewalAlert{}
	for _, a := range alerts {
		if a.DaysUntilExpiry <= 7 || a.Status == BandRed {
			out = append(out, a)
		}
	}
	return out
}

// GroupByPriority partitions alerts by priority, keeping their order.
func GroupByPriority(alerts []RenewalAlert) PriorityGroups {
	groups := PriorityGroups{
		Critical: []RenewalAlert{},
		High:     []RenewalAlert{},
		Medium:   []RenewalAlert{},
		Low:      []RenewalAlert{},
		All:      append([]RenewalAlert{}, alerts...),
	}
	for _, a := range alerts {
		switch a.Priority {
		case PriorityCritical:
			groups.Critical = append(groups.Critical, a)
		case PriorityHigh:
			groups.High = append(groups.High, a)
		case PriorityMedium:
			groups.Medium = append(groups.Medium, a)
		case PriorityLow:
			groups.Low = append(groups.Low, a)
		}
	}
	return groups
}

// documentOwner resolves the asset a document belongs to. Documents without
// an owner are reported as an unnamed vehicle with no id.
func documentOwner(doc Document) (AssetType, string, string) {
	switch {
	case doc.VehicleID != "":
		name := unknownAssetName
		if doc.Vehicle != nil {
			name = doc.Vehicle.DisplayName()
		}
		return AssetVehicle, doc.VehicleID, name
	case doc.TrailerID != "":
		name := unknownAssetName
		if doc.Trailer != nil {
			name = doc.Trailer.DisplayName()
		}
		return AssetTrailer, doc.TrailerID, name
	case doc.Vehicle != nil:
		return AssetVehicle, doc.Vehicle.ID, doc.Vehicle.DisplayName()
	case doc.Trailer != nil:
		return AssetTrailer, doc.Trailer.ID, doc.Trailer.DisplayName()
	default:
		return AssetVehicle, "", unknownAssetName
	}
}

func pluralDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func sortByUrgency(alerts []RenewalAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysUntilExpiry < alerts[j].DaysUntilExpiry
	})
}
