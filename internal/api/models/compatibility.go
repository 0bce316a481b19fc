package models

import (
	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/fleet"
)

// VehicleInput is an inline vehicle record for ad-hoc evaluation.
type VehicleInput struct {
	ID                         string `json:"id" validate:"max=100"`
	Make                       string `json:"make" validate:"max=100"`
	Model                      string `json:"model" validate:"max=100"`
	Year                       int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	TowingCapacityKg           int    `json:"towingCapacityKg" validate:"required,gt=0"`
	HitchClass                 int    `json:"hitchClass" validate:"required,gte=1,lte=5"`
	HasElectricBrakeController bool   `json:"hasElectricBrakeController"`
}

// Vehicle converts the input to an engine record.
func (v VehicleInput) Vehicle() compatibility.Vehicle {
	return compatibility.Vehicle{
		ID:                         v.ID,
		Make:                       v.Make,
		Model:                      v.Model,
		Year:                       v.Year,
		TowingCapacityKg:           v.TowingCapacityKg,
		HitchClass:                 v.HitchClass,
		HasElectricBrakeController: v.HasElectricBrakeController,
	}
}

// TrailerInput is an inline trailer record for ad-hoc evaluation.
type TrailerInput struct {
	ID                              string `json:"id" validate:"max=100"`
	Type                            string `json:"type" validate:"max=100"`
	RequiredTowingCapacityKg        int    `json:"requiredTowingCapacityKg" validate:"gte=0"`
	RequiredHitchClass              int    `json:"requiredHitchClass" validate:"gte=0,lte=5"`
	HasElectricBrakes               bool   `json:"hasElectricBrakes"`
	RequiresElectricBrakeController bool   `json:"requiresElectricBrakeController"`
}

// Trailer converts the input to an engine record.
func (t TrailerInput) Trailer() compatibility.Trailer {
	return compatibility.Trailer{
		ID:                              t.ID,
		Type:                            t.Type,
		RequiredTowingCapacityKg:        t.RequiredTowingCapacityKg,
		RequiredHitchClass:              t.RequiredHitchClass,
		HasElectricBrakes:               t.HasElectricBrakes,
		RequiresElectricBrakeController: t.RequiresElectricBrakeController,
	}
}

// EvaluateRequest is the body of POST /v1/compatibility/evaluate.
type EvaluateRequest struct {
	Vehicle  VehicleInput `json:"vehicle"`
	Trailer  TrailerInput `json:"trailer"`
	Province string       `json:"province" validate:"omitempty,len=2,uppercase"`
}

// BestMatchesRequest is the body of POST /v1/compatibility/best-matches.
// A zero MaxResults selects the engine default.
type BestMatchesRequest struct {
	TrailerID  string `json:"trailerId" validate:"required,max=100"`
	MaxResults int    `json:"maxResults" validate:"gte=0,lte=50"`
}

// CompatibilityHistory lists stored compatibility checks, newest first.
type CompatibilityHistory struct {
	Items []*fleet.CompatibilityCheck `json:"items"`
	Meta  PagedResponseMeta           `json:"meta"`
}
