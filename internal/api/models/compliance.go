package models

import "github.com/fleetops/fleetops/internal/compliance"

// Renewal filters accepted by GET /v1/compliance/renewals.
const (
	RenewalFilterUpcoming = "upcoming"
	RenewalFilterCritical = "critical"
	RenewalFilterTimeline = "timeline"
)

// ProvinceRequirements lists the mandatory documents of a province.
type ProvinceRequirements struct {
	Province     string                   `json:"province"`
	Requirements []compliance.Requirement `json:"requirements"`
}
