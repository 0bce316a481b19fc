// Package compatibility evaluates whether a vehicle can safely tow a trailer
// and ranks candidate vehicles for a given trailer.
package compatibility

import (
	"errors"
	"strconv"
)

// ErrInvalidInput is returned when a record cannot be evaluated, such as a
// vehicle with no towing capacity.
var ErrInvalidInput = errors.New("invalid input")

// Evaluation constants.
const (
	// SafetyMarginKg is the minimum spare towing capacity before a warning is raised.
	SafetyMarginKg = 200

	// MaxUtilizationPercent is the sustained utilization above which a warning is raised.
	MaxUtilizationPercent = 95.0

	// IdealUtilizationMin and IdealUtilizationMax bound the preferred capacity utilization.
	IdealUtilizationMin = 0.50
	IdealUtilizationMax = 0.85

	// IdealUtilizationTarget is the utilization used to break ranking ties.
	IdealUtilizationTarget = 0.70

	// DefaultMaxResults is the default number of ranked matches.
	DefaultMaxResults = 5
)

// Status is the outcome of a compatibility check.
type Status string

// Status values.
const (
	StatusPass    Status = "PASS"
	StatusWarning Status = "WARNING"
	StatusFail    Status = "FAIL"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusWarning, StatusFail:
		return true
	default:
		return false
	}
}

// Vehicle is the towing side of a compatibility check.
type Vehicle struct {
	ID                         string `json:"id"`
	Make                       string `json:"make"`
	Model                      string `json:"model"`
	Year                       int    `json:"year"`
	TowingCapacityKg           int    `json:"towingCapacityKg"`
	HitchClass                 int    `json:"hitchClass"`
	HasElectricBrakeController bool   `json:"hasElectricBrakeController"`
}

// DisplayName returns "<year> <make> <model>".
func (v Vehicle) DisplayName() string {
	if v.Year == 0 {
		return v.Make + " " + v.Model
	}
	return strconv.Itoa(v.Year) + " " + v.Make + " " + v.Model
}

// Trailer is the towed side of a compatibility check.
type Trailer struct {
	ID                              string `json:"id"`
	Type                            string `json:"type"`
	RequiredTowingCapacityKg        int    `json:"requiredTowingCapacityKg"`
	RequiredHitchClass              int    `json:"requiredHitchClass"`
	HasElectricBrakes               bool   `json:"hasElectricBrakes"`
	RequiresElectricBrakeController bool   `json:"requiresElectricBrakeController"`
}

// Result is the outcome of evaluating one vehicle against one trailer.
// CanTow is true exactly when Issues is empty.
type Result struct {
	VehicleID                  string   `json:"vehicleId"`
	TrailerID                  string   `json:"trailerId"`
	Status                     Status   `json:"status"`
	CanTow                     bool     `json:"canTow"`
	CapacityMarginKg           int      `json:"capacityMarginKg"`
	CapacityUtilizationPercent float64  `json:"capacityUtilizationPercent"`
	Issues                     []string `json:"issues"`
	Warnings                   []string `json:"warnings"`
	Recommendations            []string `json:"recommendations"`
}

// VehicleMatch is a towable vehicle ranked against a trailer.
type VehicleMatch struct {
	Vehicle             Vehicle `json:"vehicle"`
	Compatibility       Result  `json:"compatibility"`
	MatchScore          float64 `json:"matchScore"`
	CapacityUtilization float64 `json:"capacityUtilization"`
}

// DisplayInfo is a presentation summary of a Result.
type DisplayInfo struct {
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}
