package compliance

import (
	"sort"
)

type assetKey struct {
	kind AssetType
	id   string
}

// assetBands tracks the worst band seen per known asset.
type assetBands struct {
	order []assetKey
	bands map[assetKey]Band
}

func newAssetBands(vehicles []Vehicle, trailers []Trailer, drivers []Driver) *assetBands {
	ab := &assetBands{bands: make(map[assetKey]Band, len(vehicles)+len(trailers)+len(drivers))}
	for _, v := range vehicles {
		ab.register(assetKey{AssetVehicle, v.ID})
	}
	for _, t := range trailers {
		ab.register(assetKey{AssetTrailer, t.ID})
	}
	for _, d := range drivers {
		if d.Status == DriverActive {
			ab.register(assetKey{AssetDriver, d.ID})
		}
	}
	return ab
}

func (ab *assetBands) register(k assetKey) {
	if _, ok := ab.bands[k]; ok {
		return
	}
	ab.order = append(ab.order, k)
	ab.bands[k] = BandGreen
}

// upgrade raises the band of a known asset. Alerts for assets that are not
// tracked, including orphan documents, are ignored.
func (ab *assetBands) upgrade(alert RenewalAlert) {
	k := assetKey{alert.AssetType, alert.AssetID}
	current, ok := ab.bands[k]
	if !ok {
		return
	}
	ab.bands[k] = current.Worse(alert.Status)
}

func (ab *assetBands) counts(kind AssetType) BandCounts {
	var c BandCounts
	for _, k := range ab.order {
		if kind != "" && k.kind != kind {
			continue
		}
		c.Total++
		c.add(ab.bands[k])
	}
	return c
}

// CalculateStatus aggregates the renewals of the given assets into a fleet
// compliance status. Every vehicle, trailer and active driver lands in
// exactly one band, the worst among its alerts, or green when it has none.
func (e *Engine) CalculateStatus(vehicles []Vehicle, trailers []Trailer, drivers []Driver, documents []Document) Status {
	status, _ := e.calculate(vehicles, trailers, drivers, documents)
	return status
}

// CalculateStatusWithBreakdown is CalculateStatus plus the band
// distribution per asset type.
func (e *Engine) CalculateStatusWithBreakdown(vehicles []Vehicle, trailers []Trailer, drivers []Driver, documents []Document) (Status, AssetTypeBreakdown) {
	status, bands := e.calculate(vehicles, trailers, drivers, documents)
	return status, AssetTypeBreakdown{
		Vehicles: bands.counts(AssetVehicle),
		Trailers: bands.counts(AssetTrailer),
		Drivers:  bands.counts(AssetDriver),
	}
}

func (e *Engine) calculate(vehicles []Vehicle, trailers []Trailer, drivers []Driver, documents []Document) (Status, *assetBands) {
	renewals := e.Renewals(documents, drivers)
	bands := newAssetBands(vehicles, trailers, drivers)

	status := Status{UpcomingRenewals: renewals}
	for _, r := range renewals {
		bands.upgrade(r)

		switch {
		case r.DaysUntilExpiry <= 0:
			status.ExpiredDocuments++
		case r.DaysUntilExpiry <= 30:
			status.ExpiringDocuments++
		}
	}

	all := bands.counts("")
	status.TotalAssets = all.Total
	status.CompliantAssets = all.Compliant
	status.WarningAssets = all.Warning
	status.CriticalAssets = all.Critical

	switch {
	case status.CriticalAssets > 0:
		status.Overall = OverallCritical
	case status.WarningAssets > 0:
		status.Overall = OverallWarning
	default:
		status.Overall = OverallCompliant
	}

	return status, bands
}

// ProvinceBreakdown computes a compliance status per province, over the
// assets registered there and the documents they own, sorted by province
// code.
func (e *Engine) ProvinceBreakdown(vehicles []Vehicle, trailers []Trailer, drivers []Driver, documents []Document) []ProvinceStatus {
	vehicleProvince := make(map[string]string, len(vehicles))
	trailerProvince := make(map[string]string, len(trailers))
	seen := map[string]struct{}{}

	for _, v := range vehicles {
		vehicleProvince[v.ID] = v.Province
		seen[v.Province] = struct{}{}
	}
	for _, t := range trailers {
		trailerProvince[t.ID] = t.Province
		seen[t.Province] = struct{}{}
	}
	for _, d := range drivers {
		seen[d.Province] = struct{}{}
	}

	provinces := make([]string, 0, len(seen))
	for p := range seen {
		provinces = append(provinces, p)
	}
	sort.Strings(provinces)

	out := make([]ProvinceStatus, 0, len(provinces))
	for _, province := range provinces {
		var pv []Vehicle
		for _, v := range vehicles {
			if v.Province == province {
				pv = append(pv, v)
			}
		}
		var pt []Trailer
		for _, t := range trailers {
			if t.Province == province {
				pt = append(pt, t)
			}
		}
		var pd []Driver
		for _, d := range drivers {
			if d.Province == province {
				pd = append(pd, d)
			}
		}
		var docs []Document
		for _, doc := range documents {
			if p, ok := documentProvince(doc, vehicleProvince, trailerProvince); ok && p == province {
				docs = append(docs, doc)
			}
		}

		out = append(out, ProvinceStatus{
			Province:     province,
			Status:       e.CalculateStatus(pv, pt, pd, docs),
			Requirements: Requirements(province),
		})
	}
	return out
}

// documentProvince returns the province of the asset owning doc. Orphan
// documents belong to no province.
func documentProvince(doc Document, vehicles, trailers map[string]string) (string, bool) {
	switch {
	case doc.VehicleID != "":
		if p, ok := vehicles[doc.VehicleID]; ok {
			return p, true
		}
		if doc.Vehicle != nil {
			return doc.Vehicle.Province, true
		}
	case doc.TrailerID != "":
		if p, ok := trailers[doc.TrailerID]; ok {
			return p, true
		}
		if doc.Trailer != nil {
			return doc.Trailer.Province, true
		}
	}
	return "", false
}
